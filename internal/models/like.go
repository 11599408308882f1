package models

import (
	"time"
)

type TargetType string

const (
	TargetPost    TargetType = "POST"
	TargetComment TargetType = "COMMENT"
)

func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

// Like is one user's like on a post or a comment.
// At most one row exists per (user, target id, target type).
type Like struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_like_user_target" json:"userId"`
	User       User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_like_user_target;index:idx_like_target" json:"targetId"`
	TargetType TargetType `gorm:"type:varchar(10);not null;uniqueIndex:idx_like_user_target;index:idx_like_target" json:"targetType"`
	CreatedAt  time.Time  `json:"createdAt"`
}
