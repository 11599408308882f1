package services

import (
	"context"
	"database/sql"
	"errors"
	"socialwall/internal/apperr"
	"socialwall/internal/models"

	"gorm.io/gorm"
)

// A deleted comment stays visible only while a live comment remains somewhere
// beneath it. CommentService.Delete keeps the pruned flag in step.
const visibleCommentSQL = `comments.pruned = ?`

const visiblePostSQL = `(posts.privacy = @public OR posts.user_id = @viewer OR posts.wall_id = @viewer
	OR (posts.privacy = @friendsOnly AND EXISTS (
		SELECT 1 FROM friendships f WHERE f.accepted = @accepted AND (
			(f.user1_id = @viewer AND f.user2_id = posts.user_id) OR
			(f.user2_id = @viewer AND f.user1_id = posts.user_id)))))`

// visibleComments restricts a query on comments to rows that may be rendered.
func visibleComments(tx *gorm.DB) *gorm.DB {
	return tx.Where(visibleCommentSQL, false)
}

// visiblePosts restricts a query on posts to what viewerID is allowed to read.
func visiblePosts(tx *gorm.DB, viewerID uint) *gorm.DB {
	return tx.Where(visiblePostSQL,
		sql.Named("public", string(models.PrivacyPublic)),
		sql.Named("friendsOnly", string(models.PrivacyFriendsOnly)),
		sql.Named("viewer", viewerID),
		sql.Named("accepted", true),
	)
}

// findVisiblePost loads a post the viewer may read, or NotFound.
func findVisiblePost(ctx context.Context, conn *gorm.DB, viewerID, postID uint) (*models.Post, error) {
	var post models.Post
	err := visiblePosts(conn.WithContext(ctx).Model(&models.Post{}), viewerID).
		Where("posts.id = ?", postID).
		First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}
	return &post, nil
}

// findComment loads a comment whose post the viewer may read, or NotFound.
func findComment(ctx context.Context, conn *gorm.DB, viewerID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := conn.WithContext(ctx).Preload("User").First(&comment, commentID).Error; err != nil {
		return nil, notFoundOr(err, "Comment")
	}
	if _, err := findVisiblePost(ctx, conn, viewerID, comment.PostID); err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Comment")
		}
		return nil, err
	}
	return &comment, nil
}

// notFoundOr maps gorm.ErrRecordNotFound onto NotFound(what) and wraps
// anything else as a database error.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what)
	}
	return apperr.Wrap(apperr.ErrDatabase, "database error", err)
}

func dbErr(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.ErrDatabase, "database error", err)
}
