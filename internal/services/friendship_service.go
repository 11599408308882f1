package services

import (
	"context"
	"errors"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"socialwall/internal/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type FriendAction string

const (
	FriendAccept  FriendAction = "accept"
	FriendDecline FriendAction = "decline"
)

type FriendshipService struct {
	db *gorm.DB
}

func NewFriendshipService(conn *gorm.DB) *FriendshipService {
	return &FriendshipService{db: conn}
}

func pairScope(a, b uint) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a)
	}
}

func (s *FriendshipService) find(ctx context.Context, a, b uint) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.WithContext(ctx).Scopes(pairScope(a, b)).First(&f).Error
	if err != nil {
		return nil, notFoundOr(err, "Friendship")
	}
	return &f, nil
}

// AreFriends reports whether a and b have an accepted friendship.
func (s *FriendshipService) AreFriends(ctx context.Context, a, b uint) (bool, error) {
	return areFriends(ctx, s.db, a, b)
}

func areFriends(ctx context.Context, conn *gorm.DB, a, b uint) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Model(&models.Friendship{}).
		Scopes(pairScope(a, b)).
		Where("accepted = ?", true).
		Count(&count).Error
	if err != nil {
		return false, dbErr(err)
	}
	return count > 0, nil
}

// Send creates a pending request from requesterID to recipientID.
func (s *FriendshipService) Send(ctx context.Context, requesterID, recipientID uint) (*models.Friendship, error) {
	if requesterID == recipientID {
		return nil, apperr.Validation(apperr.Field("userId", "You cannot befriend yourself", recipientID))
	}
	var recipient models.User
	if err := s.db.WithContext(ctx).First(&recipient, recipientID).Error; err != nil {
		return nil, notFoundOr(err, "User")
	}

	_, err := s.find(ctx, requesterID, recipientID)
	if err == nil {
		return nil, apperr.Conflict("Friend request already exists")
	}
	if !apperr.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	f := models.Friendship{User1ID: requesterID, User2ID: recipientID}
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Friend request already exists")
		}
		return nil, dbErr(err)
	}
	return &f, nil
}

// Respond accepts or declines the pending request requesterID sent to
// userID. Only the recipient may respond.
func (s *FriendshipService) Respond(ctx context.Context, userID, requesterID uint, action FriendAction) (*models.Friendship, error) {
	if action != FriendAccept && action != FriendDecline {
		return nil, apperr.Validation(apperr.Field("action", "Action must be accept or decline", action))
	}
	f, err := s.find(ctx, userID, requesterID)
	if apperr.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Friend request")
	}
	if err != nil {
		return nil, err
	}
	if f.Accepted {
		return nil, apperr.Conflict("Already friends")
	}
	// 请求方不能替对方处理
	if f.User1ID == userID {
		return nil, apperr.Forbidden("Only the recipient can respond to a friend request")
	}

	if action == FriendDecline {
		if err := s.db.WithContext(ctx).Delete(f).Error; err != nil {
			return nil, dbErr(err)
		}
		return f, nil
	}
	if err := s.db.WithContext(ctx).Model(f).Update("accepted", true).Error; err != nil {
		return nil, dbErr(err)
	}
	f.Accepted = true
	return f, nil
}

// Remove deletes an accepted friendship or cancels a pending request from
// either side.
func (s *FriendshipService) Remove(ctx context.Context, userID, otherID uint) error {
	result := s.db.WithContext(ctx).Scopes(pairScope(userID, otherID)).Delete(&models.Friendship{})
	if result.Error != nil {
		return dbErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Friendship")
	}
	return nil
}

// Friends pages through the accepted friends of userID.
func (s *FriendshipService) Friends(ctx context.Context, userID uint, page utils.Pagination) ([]models.User, int64, error) {
	base := func(c context.Context) *gorm.DB {
		return s.db.WithContext(c).Model(&models.User{}).
			Where(`users.id IN (SELECT user2_id FROM friendships WHERE user1_id = ? AND accepted = ?
				UNION SELECT user1_id FROM friendships WHERE user2_id = ? AND accepted = ?)`,
				userID, true, userID, true)
	}

	var (
		users []models.User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return base(gctx).Order("first_name, last_name, id").
			Offset(page.Offset()).
			Limit(page.PerPage).
			Find(&users).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, dbErr(err)
	}
	return users, total, nil
}

// Requests lists pending requests addressed to userID, newest first.
func (s *FriendshipService) Requests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var requests []models.Friendship
	err := s.db.WithContext(ctx).Preload("User1").
		Where("user2_id = ? AND accepted = ?", userID, false).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, dbErr(err)
	}
	return requests, nil
}
