package commenttree

import (
	"socialwall/internal/async"
	"socialwall/internal/client"
	"socialwall/internal/models"
)

type Status int

const (
	Confirmed Status = iota
	Posting
	PostFailed
)

func (s Status) String() string {
	switch s {
	case Posting:
		return "posting"
	case PostFailed:
		return "failed"
	}
	return "confirmed"
}

type pageResult struct {
	page  int
	stamp uint64
	data  *client.Page[models.Comment]
}

type node struct {
	comment   models.Comment
	pendingID PendingID
	status    Status
	err       error
	replies   *list
	// paged is set once a server page has returned this comment.
	paged     bool
}

// list is one ordered sequence of siblings plus its pagination state.
type list struct {
	items     []*node
	// total is the server-reported size; known is false for the top-level
	// list until its first page arrives.
	total     int64
	known     bool
	// offset counts the server rows already consumed. Removing a paged
	// comment shifts the server's window up, so it shrinks with it.
	offset    int
	exhausted bool
	// mutations counts local changes to total; a page fetched across one
	// carries a stale count.
	mutations uint64
	fetch     *async.Operation[pageResult]
}

func newList(total int64, known bool) *list {
	return &list{total: total, known: known}
}

// loaded counts confirmed entries; pending ones are not part of the
// server's pagination.
func (l *list) loaded() int64 {
	var n int64
	for _, it := range l.items {
		if it.pendingID == 0 {
			n++
		}
	}
	return n
}

func (l *list) hasMore() bool {
	if l.exhausted {
		return false
	}
	return !l.known || l.total > l.loaded()
}

func (l *list) index(id uint) int {
	for i, it := range l.items {
		if it.pendingID == 0 && it.comment.ID == id {
			return i
		}
	}
	return -1
}

func (l *list) pendingIndex(id PendingID) int {
	for i, it := range l.items {
		if it.pendingID == id {
			return i
		}
	}
	return -1
}

// merge appends results in server order, skipping ids already present and
// comments the server would not render.
func (l *list) merge(results []models.Comment) {
	seen := make(map[uint]*node, len(l.items))
	for _, it := range l.items {
		if it.pendingID == 0 {
			seen[it.comment.ID] = it
		}
	}
	for _, c := range results {
		if n := seen[c.ID]; n != nil {
			n.paged = true
			continue
		}
		if c.Hidden() {
			continue
		}
		n := newNode(c)
		seen[c.ID] = n
		l.items = append(l.items, n)
	}
}

// nextPage is the page holding the first row not yet consumed.
func (l *list) nextPage(perPage int) int {
	return l.offset/perPage + 1
}

func (l *list) remove(i int) {
	if l.items[i].paged && l.offset > 0 {
		l.offset--
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
}

func newNode(c models.Comment) *node {
	return &node{comment: c, replies: newList(c.ReplyCount, true), paged: true}
}

// Entry is the read-only view of one comment and its loaded replies.
type Entry struct {
	Comment     models.Comment
	PendingID   PendingID
	Status      Status
	Err         error
	Path        Path
	Replies     []Entry
	ReplyTotal  int64
	MoreReplies bool
}

func (n *node) entry(parent Path) Entry {
	e := Entry{
		Comment:     n.comment,
		PendingID:   n.pendingID,
		Status:      n.status,
		Err:         n.err,
		ReplyTotal:  n.replies.total,
		MoreReplies: n.pendingID == 0 && n.replies.hasMore(),
	}
	e.Comment.ReplyCount = n.replies.total
	if n.pendingID == 0 {
		e.Path = parent.Child(n.comment.ID)
	}
	e.Replies = entries(n.replies, e.Path)
	return e
}

func entries(l *list, parent Path) []Entry {
	out := make([]Entry, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it.entry(parent))
	}
	return out
}
