package timeline

import "socialwall/internal/models"

// Event is anything Board.Apply understands. Every event is applied to
// every collection holding the post.
type Event interface{ event() }

type PostCreated struct {
	Post models.Post
}

type PostEdited struct {
	Post models.Post
}

type PostDeleted struct {
	PostID uint
}

type PostLiked struct {
	PostID uint
	LikeID *uint
	Delta  int64
}

// CommentCountChanged tracks top-level comments only.
type CommentCountChanged struct {
	PostID uint
	Delta  int64
}

// PreviewLiked targets the preview comment or its reply, whichever has
// CommentID.
type PreviewLiked struct {
	PostID    uint
	CommentID uint
	LikeID    *uint
	Delta     int64
}

// PreviewChanged replaces the preview comment (ParentID nil) or the reply
// shown under it. A nil Comment clears it.
type PreviewChanged struct {
	PostID   uint
	ParentID *uint
	Comment  *models.Comment
}

func (PostCreated) event()         {}
func (PostEdited) event()          {}
func (PostDeleted) event()         {}
func (PostLiked) event()           {}
func (CommentCountChanged) event() {}
func (PreviewLiked) event()        {}
func (PreviewChanged) event()      {}
