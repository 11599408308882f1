package models

import (
	"time"
)

type PostType string

const (
	PostTypeRegular          PostType = "REGULAR"
	PostTypeProfilePicUpdate PostType = "PROFILE_PIC_UPDATE"
)

type Privacy string

const (
	PrivacyPublic      Privacy = "PUBLIC"
	PrivacyFriendsOnly Privacy = "FRIENDS_ONLY"
	PrivacyPrivate     Privacy = "PRIVATE"
)

// Valid reports whether p is one of the known privacy levels.
func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyFriendsOnly, PrivacyPrivate:
		return true
	}
	return false
}

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"authorId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	WallID    uint      `gorm:"not null;index" json:"wallId"` // Equals UserID for posts on the author's own wall
	Wall      User      `gorm:"foreignKey:WallID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"wall"`
	Content   *string   `gorm:"type:text" json:"content"` // Nullable for media-only posts
	ImageURL  *string   `json:"imageUrl"`
	Type      PostType  `gorm:"type:varchar(30);not null;default:'REGULAR'" json:"type"`
	Privacy   Privacy   `gorm:"type:varchar(20);not null;default:'PUBLIC';index" json:"privacy"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// 非数据库字段，用于查询时填充
	ContentHTML    string   `gorm:"-" json:"contentHtml,omitempty"`
	LikeCount      int64    `gorm:"-" json:"likeCount"`
	CommentCount   int64    `gorm:"-" json:"commentCount"` // Top-level only
	LikedByMe      *uint    `gorm:"-" json:"likedByMe"`
	PreviewComment *Comment `gorm:"-" json:"previewComment,omitempty"`
}
