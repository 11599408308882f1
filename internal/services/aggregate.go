package services

import (
	"context"
	"socialwall/internal/models"
	"socialwall/internal/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Aggregator turns bare post rows into Post Aggregates: counters, the
// viewer's likes and the width-1 preview comment with its latest reply.
type Aggregator struct {
	db    *gorm.DB
	likes *LikeService
}

func NewAggregator(conn *gorm.DB, likes *LikeService) *Aggregator {
	return &Aggregator{db: conn, likes: likes}
}

// Assemble decorates posts in place. Likes for every post, preview comment
// and preview reply are resolved together so a page costs a fixed number of
// queries no matter how many posts it holds.
func (a *Aggregator) Assemble(ctx context.Context, viewerID uint, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	var (
		counts   map[uint]int64
		previews []models.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = a.commentCounts(gctx, postIDs)
		return err
	})
	g.Go(func() error {
		return a.db.WithContext(gctx).Preload("User").
			Where("comments.post_id IN ?", postIDs).
			Where(`comments.id = (SELECT c2.id FROM comments c2
				WHERE c2.post_id = comments.post_id AND c2.parent_id IS NULL AND c2.is_deleted = ?
				ORDER BY c2.created_at DESC, c2.id DESC LIMIT 1)`, false).
			Find(&previews).Error
	})
	if err := g.Wait(); err != nil {
		return dbErr(err)
	}

	var replies []models.Comment
	if len(previews) > 0 {
		previewIDs := make([]uint, len(previews))
		for i, c := range previews {
			previewIDs[i] = c.ID
		}
		err := a.db.WithContext(ctx).Preload("User").
			Where("comments.parent_id IN ?", previewIDs).
			Where(`comments.id = (SELECT c2.id FROM comments c2
				WHERE c2.parent_id = comments.parent_id AND c2.is_deleted = ?
				ORDER BY c2.created_at DESC, c2.id DESC LIMIT 1)`, false).
			Find(&replies).Error
		if err != nil {
			return dbErr(err)
		}
	}

	// 一次性收集 post / preview / reply 的点赞目标
	targets := make([]Target, 0, len(posts)+len(previews)+len(replies))
	commentIDs := make([]uint, 0, len(previews)+len(replies))
	for _, p := range posts {
		targets = append(targets, PostTarget(p.ID))
	}
	for _, c := range previews {
		targets = append(targets, CommentTarget(c.ID))
		commentIDs = append(commentIDs, c.ID)
	}
	for _, c := range replies {
		targets = append(targets, CommentTarget(c.ID))
		commentIDs = append(commentIDs, c.ID)
	}

	var (
		likes      map[Target]LikeSummary
		replyTotal map[uint]int64
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		likes, err = a.likes.Summaries(gctx, viewerID, targets)
		return err
	})
	g.Go(func() (err error) {
		if len(commentIDs) == 0 {
			return nil
		}
		replyTotal, err = replyCounts(gctx, a.db, commentIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	decorate := func(c *models.Comment) {
		summary := likes[CommentTarget(c.ID)]
		c.LikeCount = summary.Count
		c.LikedByMe = summary.Mine
		c.ReplyCount = replyTotal[c.ID]
		c.ContentHTML = utils.RenderMarkdown(c.Content)
	}

	replyByParent := make(map[uint]*models.Comment, len(replies))
	for i := range replies {
		decorate(&replies[i])
		replyByParent[*replies[i].ParentID] = &replies[i]
	}
	previewByPost := make(map[uint]*models.Comment, len(previews))
	for i := range previews {
		decorate(&previews[i])
		previews[i].Reply = replyByParent[previews[i].ID]
		previewByPost[previews[i].PostID] = &previews[i]
	}

	for i := range posts {
		p := &posts[i]
		summary := likes[PostTarget(p.ID)]
		p.LikeCount = summary.Count
		p.LikedByMe = summary.Mine
		p.CommentCount = counts[p.ID]
		p.PreviewComment = previewByPost[p.ID]
		p.ContentHTML = utils.RenderMarkdown(p.Content)
	}
	return nil
}

// commentCounts 批量统计帖子的可见顶层评论数
func (a *Aggregator) commentCounts(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	type countResult struct {
		PostID uint
		Count  int64
	}
	var results []countResult
	err := visibleComments(a.db.WithContext(ctx).Model(&models.Comment{})).
		Select("comments.post_id, COUNT(*) AS count").
		Where("comments.post_id IN ? AND comments.parent_id IS NULL", postIDs).
		Group("comments.post_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(results))
	for _, r := range results {
		counts[r.PostID] = r.Count
	}
	return counts, nil
}
