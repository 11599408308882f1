package services

import (
	"context"
	"errors"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"socialwall/internal/utils"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const MaxCommentLength = 2000

type CreateCommentInput struct {
	PostID   uint
	ParentID *uint
	Content  *string
	ImageURL *string
}

type UpdateCommentInput struct {
	Content  *string
	ImageURL *string
}

type CommentService struct {
	db    *gorm.DB
	likes *LikeService
}

func NewCommentService(conn *gorm.DB, likes *LikeService) *CommentService {
	return &CommentService{db: conn, likes: likes}
}

// normalizeBody trims content and reports a field error when neither text nor
// media is present or the text is too long.
func normalizeBody(content, imageURL *string, maxLen int) (*string, *string, []apperr.FieldError) {
	var fields []apperr.FieldError
	content = trimmedOrNil(content)
	imageURL = trimmedOrNil(imageURL)
	if content == nil && imageURL == nil {
		fields = append(fields, apperr.Field("content", "Content or an image is required", nil))
	}
	if content != nil && utf8.RuneCountInString(*content) > maxLen {
		fields = append(fields, apperr.Field("content", "Content is too long", len(*content)))
	}
	return content, imageURL, fields
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Create inserts a comment or reply by userID.
func (s *CommentService) Create(ctx context.Context, userID uint, in CreateCommentInput) (*models.Comment, error) {
	content, imageURL, fields := normalizeBody(in.Content, in.ImageURL, MaxCommentLength)
	if in.PostID == 0 {
		fields = append(fields, apperr.Field("postId", "Post id is required", nil))
	} else if _, err := findVisiblePost(ctx, s.db, userID, in.PostID); err != nil {
		if !apperr.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		fields = append(fields, apperr.Field("postId", "Post not found", in.PostID))
	}

	if in.ParentID != nil && len(fields) == 0 {
		var parent models.Comment
		err := s.db.WithContext(ctx).First(&parent, *in.ParentID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fields = append(fields, apperr.Field("parentId", "Parent comment not found", *in.ParentID))
		case err != nil:
			return nil, dbErr(err)
		case parent.PostID != in.PostID:
			fields = append(fields, apperr.Field("parentId", "Parent comment belongs to another post", *in.ParentID))
		case parent.IsDeleted:
			fields = append(fields, apperr.Field("parentId", "Cannot reply to a deleted comment", *in.ParentID))
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	comment := models.Comment{
		PostID:   in.PostID,
		UserID:   userID,
		ParentID: in.ParentID,
		Content:  content,
		ImageURL: imageURL,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, dbErr(err)
	}
	return s.reload(ctx, userID, comment.ID)
}

// Update edits the content of a live comment. Only the author may edit.
func (s *CommentService) Update(ctx context.Context, userID, commentID uint, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := findComment(ctx, s.db, userID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, apperr.Forbidden("You can only edit your own comments")
	}
	if comment.IsDeleted {
		return nil, apperr.Conflict("Comment has been deleted")
	}

	content, imageURL, fields := normalizeBody(in.Content, in.ImageURL, MaxCommentLength)
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	err = s.db.WithContext(ctx).Model(comment).Updates(map[string]interface{}{
		"content":   content,
		"image_url": imageURL,
	}).Error
	if err != nil {
		return nil, dbErr(err)
	}
	return s.reload(ctx, userID, commentID)
}

// Delete soft-deletes a comment: content and media are cleared, the row and
// its parent linkage stay so replies keep their place in the thread.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	comment, err := findComment(ctx, s.db, userID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, apperr.Forbidden("You can only delete your own comments")
	}

	if !comment.IsDeleted {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Model(comment).Updates(map[string]interface{}{
				"is_deleted": true,
				"content":    nil,
				"image_url":  nil,
			}).Error
			if err != nil {
				return err
			}
			return pruneDeadChain(tx, comment.ID)
		})
		if err != nil {
			return nil, dbErr(err)
		}
	}
	return s.reload(ctx, userID, commentID)
}

// pruneDeadChain marks id pruned when it is deleted and every reply under it
// is pruned, then repeats for its parent. Replies to deleted comments are
// rejected, so a pruned comment never comes back.
func pruneDeadChain(tx *gorm.DB, id uint) error {
	for {
		var c models.Comment
		if err := tx.Select("id", "parent_id", "is_deleted").First(&c, id).Error; err != nil {
			return err
		}
		if !c.IsDeleted {
			return nil
		}

		var live int64
		err := tx.Model(&models.Comment{}).
			Where("parent_id = ? AND pruned = ?", id, false).
			Count(&live).Error
		if err != nil {
			return err
		}
		if live > 0 {
			return nil
		}

		if err := tx.Model(&models.Comment{}).Where("id = ?", id).Update("pruned", true).Error; err != nil {
			return err
		}
		if c.ParentID == nil {
			return nil
		}
		id = *c.ParentID
	}
}

// Get returns one comment as the viewer sees it. A deleted comment without
// replies is not rendered anywhere and answers NotFound.
func (s *CommentService) Get(ctx context.Context, viewerID, commentID uint) (*models.Comment, error) {
	comment, err := s.reload(ctx, viewerID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.Hidden() {
		return nil, apperr.NotFound("Comment")
	}
	return comment, nil
}

// TopLevel pages through a post's top-level comments, newest first.
func (s *CommentService) TopLevel(ctx context.Context, viewerID, postID uint, page utils.Pagination) ([]models.Comment, int64, error) {
	if _, err := findVisiblePost(ctx, s.db, viewerID, postID); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, viewerID, page, "created_at DESC, id DESC", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("comments.post_id = ? AND comments.parent_id IS NULL", postID)
	})
}

// Replies pages through the direct replies of a comment, oldest first.
// Replies of a tombstone stay reachable.
func (s *CommentService) Replies(ctx context.Context, viewerID, commentID uint, page utils.Pagination) ([]models.Comment, int64, error) {
	if _, err := findComment(ctx, s.db, viewerID, commentID); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, viewerID, page, "created_at ASC, id ASC", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("comments.parent_id = ?", commentID)
	})
}

func (s *CommentService) list(ctx context.Context, viewerID uint, page utils.Pagination, order string, scope func(*gorm.DB) *gorm.DB) ([]models.Comment, int64, error) {
	base := func(c context.Context) *gorm.DB {
		return visibleComments(s.db.WithContext(c).Model(&models.Comment{}).Scopes(scope))
	}

	var (
		comments []models.Comment
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return base(gctx).Preload("User").
			Order(order).
			Offset(page.Offset()).
			Limit(page.PerPage).
			Find(&comments).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, dbErr(err)
	}

	refs := make([]*models.Comment, len(comments))
	for i := range comments {
		refs[i] = &comments[i]
	}
	if err := s.decorate(ctx, viewerID, refs); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// reload fetches a comment with author and recomputes counters and the
// viewer's like from the database.
func (s *CommentService) reload(ctx context.Context, viewerID, commentID uint) (*models.Comment, error) {
	comment, err := findComment(ctx, s.db, viewerID, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, viewerID, []*models.Comment{comment}); err != nil {
		return nil, err
	}
	return comment, nil
}

// decorate fills replyCount, likeCount, likedByMe and contentHtml. Reply
// counts and like summaries are fetched concurrently and joined in memory.
func (s *CommentService) decorate(ctx context.Context, viewerID uint, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]uint, len(comments))
	targets := make([]Target, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		targets[i] = CommentTarget(c.ID)
	}

	var (
		replies map[uint]int64
		likes   map[Target]LikeSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		replies, err = replyCounts(gctx, s.db, ids)
		return err
	})
	g.Go(func() (err error) {
		likes, err = s.likes.Summaries(gctx, viewerID, targets)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range comments {
		c.ReplyCount = replies[c.ID]
		summary := likes[CommentTarget(c.ID)]
		c.LikeCount = summary.Count
		c.LikedByMe = summary.Mine
		c.ContentHTML = utils.RenderMarkdown(c.Content)
	}
	return nil
}

// replyCounts counts, per parent, the direct replies that can still be
// rendered: live ones and tombstones with something live beneath them.
func replyCounts(ctx context.Context, conn *gorm.DB, parentIDs []uint) (map[uint]int64, error) {
	type countResult struct {
		ParentID uint
		Count    int64
	}
	var results []countResult
	err := conn.WithContext(ctx).Table("comments AS ch").
		Select("ch.parent_id, COUNT(*) AS count").
		Where("ch.parent_id IN ?", parentIDs).
		Where("ch.pruned = ?", false).
		Group("ch.parent_id").
		Scan(&results).Error
	if err != nil {
		return nil, dbErr(err)
	}

	counts := make(map[uint]int64, len(results))
	for _, r := range results {
		counts[r.ParentID] = r.Count
	}
	return counts, nil
}
