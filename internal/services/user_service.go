package services

import (
	"context"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Relation describes how the viewer stands with another user.
type Relation string

const (
	RelationSelf      Relation = "self"
	RelationNone      Relation = "none"
	RelationFriends   Relation = "friends"
	RelationRequested Relation = "requested" // viewer sent a pending request
	RelationIncoming  Relation = "incoming"  // viewer received a pending request
)

// Profile is the header of a user's wall.
type Profile struct {
	User        *models.User `json:"user"`
	Relation    Relation     `json:"relation"`
	FriendCount int64        `json:"friendCount"`
	PostCount   int64        `json:"postCount"` // Wall posts visible to the viewer
}

type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(conn *gorm.DB) *UserService {
	return &UserService{db: conn}
}

// Profile 用户主页信息，三个查询并发执行
func (s *UserService) Profile(ctx context.Context, viewerID, userID uint) (*Profile, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "User")
	}
	p := Profile{User: &user, Relation: RelationSelf}

	g, gctx := errgroup.WithContext(ctx)
	if viewerID != userID {
		g.Go(func() error {
			rel, err := s.relation(gctx, viewerID, userID)
			p.Relation = rel
			return err
		})
	}
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Friendship{}).
			Where("(user1_id = ? OR user2_id = ?) AND accepted = ?", userID, userID, true).
			Count(&p.FriendCount).Error
	})
	g.Go(func() error {
		return visiblePosts(s.db.WithContext(gctx).Model(&models.Post{}), viewerID).
			Where("posts.user_id = ? OR posts.wall_id = ?", userID, userID).
			Count(&p.PostCount).Error
	})
	if err := g.Wait(); err != nil {
		return nil, dbErr(err)
	}
	return &p, nil
}

func (s *UserService) relation(ctx context.Context, viewerID, userID uint) (Relation, error) {
	var fs []models.Friendship
	if err := s.db.WithContext(ctx).Scopes(pairScope(viewerID, userID)).Limit(1).Find(&fs).Error; err != nil {
		return "", err
	}
	switch {
	case len(fs) == 0:
		return RelationNone, nil
	case fs[0].Accepted:
		return RelationFriends, nil
	case fs[0].User1ID == viewerID:
		return RelationRequested, nil
	}
	return RelationIncoming, nil
}

// UpdateProfile changes the viewer's display name.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	updates := map[string]any{}
	var fields []apperr.FieldError
	set := func(column, path string, v *string) {
		if v == nil {
			return
		}
		name := strings.TrimSpace(*v)
		if name == "" || len(name) > 100 {
			fields = append(fields, apperr.Field(path, "Name must be between 1 and 100 characters", *v))
			return
		}
		updates[column] = name
	}
	set("first_name", "firstName", in.FirstName)
	set("last_name", "lastName", in.LastName)
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "User")
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, dbErr(err)
		}
	}
	return &user, nil
}
