package models

import (
	"time"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	Post      *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"authorId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	ParentID  *uint     `gorm:"index" json:"parentId"` // Nullable for top-level comments
	Parent    *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content   *string   `gorm:"type:text" json:"content"` // Cleared on soft delete
	ImageURL  *string   `json:"imageUrl"`
	IsDeleted bool      `gorm:"not null;default:false;index" json:"isDeleted"`
	Pruned    bool      `gorm:"not null;default:false;index" json:"-"` // Deleted with nothing live left beneath it
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ContentHTML string   `gorm:"-" json:"contentHtml,omitempty"`
	LikeCount   int64    `gorm:"-" json:"likeCount"`
	ReplyCount  int64    `gorm:"-" json:"replyCount"`
	LikedByMe   *uint    `gorm:"-" json:"likedByMe"`
	Reply       *Comment `gorm:"-" json:"reply,omitempty"` // Latest reply, only set on preview comments
}

// Hidden reports whether the comment should be left out of any rendered list:
// a deleted comment only survives as a tombstone while it still has replies.
func (c *Comment) Hidden() bool {
	return c.IsDeleted && c.ReplyCount == 0
}
