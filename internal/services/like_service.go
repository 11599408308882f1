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

// Target identifies a likeable row.
type Target struct {
	ID   uint
	Type models.TargetType
}

func PostTarget(id uint) Target    { return Target{ID: id, Type: models.TargetPost} }
func CommentTarget(id uint) Target { return Target{ID: id, Type: models.TargetComment} }

// LikeSummary is what a rendered post or comment needs to know about its likes.
type LikeSummary struct {
	Count int64
	Mine  *uint // viewer's like id
}

// LikesSample is the hover preview of likers. Mine is pinned separately and
// never repeated in Results.
type LikesSample struct {
	Mine    *models.Like  `json:"mine"`
	Results []models.Like `json:"results"`
	Count   int64         `json:"count"`
}

type LikeService struct {
	db *gorm.DB
}

func NewLikeService(conn *gorm.DB) *LikeService {
	return &LikeService{db: conn}
}

// ensureLikeable checks the target exists and the viewer can see it.
func (s *LikeService) ensureLikeable(ctx context.Context, viewerID uint, target Target) error {
	switch target.Type {
	case models.TargetPost:
		_, err := findVisiblePost(ctx, s.db, viewerID, target.ID)
		return err
	case models.TargetComment:
		comment, err := findComment(ctx, s.db, viewerID, target.ID)
		if err != nil {
			return err
		}
		if comment.IsDeleted {
			return apperr.NotFound("Comment")
		}
		return nil
	}
	return apperr.Validation(apperr.Field("targetType", "Target type must be POST or COMMENT", target.Type))
}

// Like creates the viewer's like on target. A second like by the same user is a Conflict.
func (s *LikeService) Like(ctx context.Context, userID uint, target Target) (*models.Like, error) {
	if err := s.ensureLikeable(ctx, userID, target); err != nil {
		return nil, err
	}

	var existing models.Like
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_type = ?", userID, target.ID, target.Type).
		First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("You already liked this")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dbErr(err)
	}

	like := models.Like{
		UserID:     userID,
		TargetID:   target.ID,
		TargetType: target.Type,
	}
	if err := s.db.WithContext(ctx).Create(&like).Error; err != nil {
		// Lost a race against a concurrent like from the same user
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("You already liked this")
		}
		return nil, dbErr(err)
	}
	return &like, nil
}

// Unlike removes the user's like on target, NotFound when there is none.
func (s *LikeService) Unlike(ctx context.Context, userID uint, target Target) error {
	if !target.Type.Valid() {
		return apperr.Validation(apperr.Field("targetType", "Target type must be POST or COMMENT", target.Type))
	}
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_type = ?", userID, target.ID, target.Type).
		Delete(&models.Like{})
	if result.Error != nil {
		return dbErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Like")
	}
	return nil
}

// UnlikeByID removes a like by its id; only its owner may do so.
func (s *LikeService) UnlikeByID(ctx context.Context, userID, likeID uint) error {
	var like models.Like
	if err := s.db.WithContext(ctx).First(&like, likeID).Error; err != nil {
		return notFoundOr(err, "Like")
	}
	if like.UserID != userID {
		return apperr.Forbidden("You can only remove your own likes")
	}
	return dbErr(s.db.WithContext(ctx).Delete(&like).Error)
}

// List returns one page of likers of target, newest first.
func (s *LikeService) List(ctx context.Context, viewerID uint, target Target, page utils.Pagination) ([]models.Like, int64, error) {
	if err := s.ensureLikeable(ctx, viewerID, target); err != nil {
		return nil, 0, err
	}

	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Like{}).
			Where("target_id = ? AND target_type = ?", target.ID, target.Type)
	}

	var (
		likes []models.Like
		total int64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base().Count(&total).Error
	})
	g.Go(func() error {
		return base().Preload("User").
			Order("created_at DESC, id DESC").
			Offset(page.Offset()).
			Limit(page.PerPage).
			Find(&likes).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, dbErr(err)
	}
	return likes, total, nil
}

// Sample returns at most limit likers; the viewer's own like, if any, is
// returned in Mine and counts against limit.
func (s *LikeService) Sample(ctx context.Context, viewerID uint, target Target, limit int) (*LikesSample, error) {
	if err := s.ensureLikeable(ctx, viewerID, target); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	sample := &LikesSample{Results: []models.Like{}}
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Like{}).
			Where("target_id = ? AND target_type = ?", target.ID, target.Type)
	}

	if err := base().Count(&sample.Count).Error; err != nil {
		return nil, dbErr(err)
	}

	var mine models.Like
	err := base().Preload("User").Where("user_id = ?", viewerID).First(&mine).Error
	switch {
	case err == nil:
		sample.Mine = &mine
		limit--
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, dbErr(err)
	}

	if limit > 0 {
		err = base().Preload("User").Where("user_id <> ?", viewerID).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Find(&sample.Results).Error
		if err != nil {
			return nil, dbErr(err)
		}
	}
	return sample, nil
}

// Summaries computes like counts and the viewer's own likes for a batch of
// targets with one count query and one lookup query, issued concurrently.
func (s *LikeService) Summaries(ctx context.Context, viewerID uint, targets []Target) (map[Target]LikeSummary, error) {
	out := make(map[Target]LikeSummary, len(targets))
	if len(targets) == 0 {
		return out, nil
	}

	postIDs := []uint{}
	commentIDs := []uint{}
	for _, t := range targets {
		if t.Type == models.TargetPost {
			postIDs = append(postIDs, t.ID)
		} else {
			commentIDs = append(commentIDs, t.ID)
		}
	}
	scope := func(tx *gorm.DB) *gorm.DB {
		return tx.Where("(target_type = ? AND target_id IN ?) OR (target_type = ? AND target_id IN ?)",
			models.TargetPost, postIDs, models.TargetComment, commentIDs)
	}

	type countRow struct {
		TargetID   uint
		TargetType models.TargetType
		Count      int64
	}
	var (
		counts []countRow
		mine   []models.Like
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Like{}).
			Select("target_id, target_type, COUNT(*) AS count").
			Scopes(scope).
			Group("target_id, target_type").
			Scan(&counts).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Like{}).
			Where("user_id = ?", viewerID).
			Scopes(scope).
			Find(&mine).Error
	})
	if err := g.Wait(); err != nil {
		return nil, dbErr(err)
	}

	for _, row := range counts {
		key := Target{ID: row.TargetID, Type: row.TargetType}
		summary := out[key]
		summary.Count = row.Count
		out[key] = summary
	}
	for _, like := range mine {
		key := Target{ID: like.TargetID, Type: like.TargetType}
		summary := out[key]
		id := like.ID
		summary.Mine = &id
		out[key] = summary
	}
	return out, nil
}
