package commenttree

import (
	"socialwall/internal/models"
	"time"
)

// Path locates a comment: the ids of its ancestors from the top-level
// comment down to its direct parent, followed by its own id. A nil Path as a
// parent means the top-level list.
type Path []uint

// Child returns the path of the direct reply id under p.
func (p Path) Child(id uint) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, id)
}

// Parent returns the path of the comment's parent, nil for top-level.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1 : len(p)-1]
}

func (p Path) ID() uint {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

func (p Path) TopLevel() bool { return len(p) == 1 }

type PendingID uint64

// Pending is the handle returned by InsertPending.
type Pending struct {
	ID     PendingID
	Parent Path
}

// Event is anything Store.Apply understands.
type Event interface{ event() }

type PendingInserted struct {
	Pending Pending
	Comment models.Comment
}

type CommentConfirmed struct {
	PendingID PendingID
	Comment   models.Comment
}

type CommentFailed struct {
	PendingID PendingID
	Err       error
}

type CommentEdited struct {
	Path        Path
	Content     *string
	ContentHTML string
	UpdatedAt   time.Time
}

// CommentDeleted soft-deletes the comment at Path. ReplyCount, when set,
// is the server's count at delete time.
type CommentDeleted struct {
	Path       Path
	ReplyCount *int64
}

type LikeChanged struct {
	Path   Path
	LikeID *uint
	Delta  int64
}

// PageLoaded merges one fetched page into the list under Parent.
type PageLoaded struct {
	Parent  Path
	Page    int
	Results []models.Comment
	Total   int64

	origin *list
	stamp  uint64
}

func (PendingInserted) event()  {}
func (CommentConfirmed) event() {}
func (CommentFailed) event()    {}
func (CommentEdited) event()    {}
func (CommentDeleted) event()   {}
func (LikeChanged) event()      {}
func (PageLoaded) event()       {}

// Applied is what listeners receive after an event changed the tree.
type Applied struct {
	Event Event
	// Path of the affected comment; nil for PageLoaded, pending and failed events.
	Path Path
	// Comment is its state afterwards, nil when it was removed.
	Comment *models.Comment
	// Removed lists every comment taken out of the tree, including
	// tombstoned ancestors left without replies.
	Removed []Path
}

type Listener func(Applied)
