package services

import (
	"context"
	"socialwall/internal/models"
	"socialwall/internal/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type FeedService struct {
	db        *gorm.DB
	aggregate *Aggregator
}

func NewFeedService(conn *gorm.DB, aggregate *Aggregator) *FeedService {
	return &FeedService{db: conn, aggregate: aggregate}
}

// Feed pages through every post the viewer may read, newest first.
func (s *FeedService) Feed(ctx context.Context, viewerID uint, page utils.Pagination) ([]models.Post, int64, error) {
	return s.page(ctx, viewerID, page, func(tx *gorm.DB) *gorm.DB { return tx })
}

// Wall pages through the posts authored by or written to wallID.
func (s *FeedService) Wall(ctx context.Context, viewerID, wallID uint, page utils.Pagination) ([]models.Post, int64, error) {
	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, wallID).Error; err != nil {
		return nil, 0, notFoundOr(err, "User")
	}
	return s.page(ctx, viewerID, page, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.user_id = ? OR posts.wall_id = ?", wallID, wallID)
	})
}

func (s *FeedService) page(ctx context.Context, viewerID uint, page utils.Pagination, scope func(*gorm.DB) *gorm.DB) ([]models.Post, int64, error) {
	base := func(c context.Context) *gorm.DB {
		return visiblePosts(s.db.WithContext(c).Model(&models.Post{}), viewerID).Scopes(scope)
	}

	var (
		posts []models.Post
		total int64
	)
	// count 每次都重新计算，不缓存
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return base(gctx).Preload("User").Preload("Wall").
			Order("posts.created_at DESC, posts.id DESC").
			Offset(page.Offset()).
			Limit(page.PerPage).
			Find(&posts).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, dbErr(err)
	}

	if err := s.aggregate.Assemble(ctx, viewerID, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
