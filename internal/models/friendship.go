package models

import (
	"time"
)

// Friendship is stored once per pair. While pending, User1 is the requester
// and User2 the recipient.
type Friendship struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	User1ID   uint      `gorm:"column:user1_id;not null;uniqueIndex:idx_friend_pair" json:"user1Id"`
	User1     User      `gorm:"foreignKey:User1ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user1"`
	User2ID   uint      `gorm:"column:user2_id;not null;uniqueIndex:idx_friend_pair;index" json:"user2Id"`
	User2     User      `gorm:"foreignKey:User2ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user2"`
	Accepted  bool      `gorm:"not null;default:false" json:"accepted"`
	CreatedAt time.Time `json:"createdAt"`
}

// Other returns the id of the side of the friendship that is not userID.
func (f Friendship) Other(userID uint) uint {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}
