package services

import (
	"context"
	"errors"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"socialwall/internal/utils"

	"gorm.io/gorm"
)

const MaxPostLength = 5000

type CreatePostInput struct {
	WallID   uint // 0 means the author's own wall
	Content  *string
	ImageURL *string
	Type     models.PostType
	Privacy  models.Privacy
}

type UpdatePostInput struct {
	Content  *string
	ImageURL *string
	Privacy  models.Privacy // empty keeps the current setting
}

type PostService struct {
	db        *gorm.DB
	likes     *LikeService
	aggregate *Aggregator
}

func NewPostService(conn *gorm.DB, likes *LikeService, aggregate *Aggregator) *PostService {
	return &PostService{db: conn, likes: likes, aggregate: aggregate}
}

// Create publishes a post on in.WallID. Posting on someone else's wall needs
// an accepted friendship; a PROFILE_PIC_UPDATE post also becomes the author's
// profile picture.
func (s *PostService) Create(ctx context.Context, userID uint, in CreatePostInput) (*models.Post, error) {
	content, imageURL, fields := normalizeBody(in.Content, in.ImageURL, MaxPostLength)

	if in.Privacy == "" {
		in.Privacy = models.PrivacyPublic
	}
	if !in.Privacy.Valid() {
		fields = append(fields, apperr.Field("privacy", "Privacy must be PUBLIC, FRIENDS_ONLY or PRIVATE", in.Privacy))
	}
	if in.Type == "" {
		in.Type = models.PostTypeRegular
	}
	switch in.Type {
	case models.PostTypeRegular:
	case models.PostTypeProfilePicUpdate:
		if imageURL == nil {
			fields = append(fields, apperr.Field("image", "A profile picture update needs an image", nil))
		}
		if in.WallID != 0 && in.WallID != userID {
			fields = append(fields, apperr.Field("wallId", "Profile picture updates go on your own wall", in.WallID))
		}
	default:
		fields = append(fields, apperr.Field("type", "Unknown post type", in.Type))
	}

	wallID := in.WallID
	if wallID == 0 {
		wallID = userID
	}
	if wallID != userID && len(fields) == 0 {
		var wall models.User
		err := s.db.WithContext(ctx).First(&wall, wallID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fields = append(fields, apperr.Field("wallId", "User not found", wallID))
		} else if err != nil {
			return nil, dbErr(err)
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	if wallID != userID {
		ok, err := areFriends(ctx, s.db, userID, wallID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("You can only post on your friends' walls")
		}
	}

	post := models.Post{
		UserID:   userID,
		WallID:   wallID,
		Content:  content,
		ImageURL: imageURL,
		Type:     in.Type,
		Privacy:  in.Privacy,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if post.Type == models.PostTypeProfilePicUpdate {
			return tx.Model(&models.User{}).Where("id = ?", userID).Update("profile_pic_url", imageURL).Error
		}
		return nil
	})
	if err != nil {
		return nil, dbErr(err)
	}
	return s.Get(ctx, userID, post.ID)
}

// Update edits content, media or privacy. Only the author may edit.
func (s *PostService) Update(ctx context.Context, userID, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := findVisiblePost(ctx, s.db, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, apperr.Forbidden("You can only edit your own posts")
	}

	content, imageURL, fields := normalizeBody(in.Content, in.ImageURL, MaxPostLength)
	if in.Privacy != "" && !in.Privacy.Valid() {
		fields = append(fields, apperr.Field("privacy", "Privacy must be PUBLIC, FRIENDS_ONLY or PRIVATE", in.Privacy))
	}
	if post.Type == models.PostTypeProfilePicUpdate && imageURL == nil {
		fields = append(fields, apperr.Field("image", "A profile picture update needs an image", nil))
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	updates := map[string]interface{}{
		"content":   content,
		"image_url": imageURL,
	}
	if in.Privacy != "" {
		updates["privacy"] = in.Privacy
	}
	if err := s.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return nil, dbErr(err)
	}
	return s.Get(ctx, userID, postID)
}

// Delete hard-deletes a post with its comments and every like on either,
// returning the row as it was.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, apperr.Forbidden("You can only delete your own posts")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("target_type = ? AND target_id IN (?)", models.TargetComment, commentIDs).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", models.TargetPost, postID).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
	if err != nil {
		return nil, dbErr(err)
	}
	return post, nil
}

// Get returns a single Post Aggregate.
func (s *PostService) Get(ctx context.Context, viewerID, postID uint) (*models.Post, error) {
	var post models.Post
	err := visiblePosts(s.db.WithContext(ctx).Model(&models.Post{}), viewerID).
		Preload("User").Preload("Wall").
		Where("posts.id = ?", postID).
		First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}

	posts := []models.Post{post}
	if err := s.aggregate.Assemble(ctx, viewerID, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Likes pages through the likers of a post.
func (s *PostService) Likes(ctx context.Context, viewerID, postID uint, page utils.Pagination) ([]models.Like, int64, error) {
	return s.likes.List(ctx, viewerID, PostTarget(postID), page)
}
