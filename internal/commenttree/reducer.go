package commenttree

import (
	"fmt"
	"socialwall/internal/models"
)

// locate walks path from the top-level list, one level per ancestor id, and
// returns the list holding the target and its index there.
func (s *Store) locate(path Path) (*list, int, error) {
	if len(path) == 0 {
		return nil, -1, ErrNotLoaded
	}
	l := s.root
	for _, id := range path[:len(path)-1] {
		i := l.index(id)
		if i < 0 {
			return nil, -1, fmt.Errorf("%w: ancestor %d", ErrNotLoaded, id)
		}
		l = l.items[i].replies
	}
	i := l.index(path.ID())
	if i < 0 {
		return nil, -1, fmt.Errorf("%w: %d", ErrNotLoaded, path.ID())
	}
	return l, i, nil
}

// listAt returns the list under parent; nil means top level.
func (s *Store) listAt(parent Path) (*list, error) {
	if len(parent) == 0 {
		return s.root, nil
	}
	l, i, err := s.locate(parent)
	if err != nil {
		return nil, err
	}
	return l.items[i].replies, nil
}

func (s *Store) pendingNode(id PendingID) (*list, int, Path, error) {
	parent, ok := s.pending[id]
	if !ok {
		return nil, -1, nil, ErrUnknownPending
	}
	l, err := s.listAt(parent)
	if err != nil {
		delete(s.pending, id)
		return nil, -1, nil, err
	}
	i := l.pendingIndex(id)
	if i < 0 {
		delete(s.pending, id)
		return nil, -1, nil, ErrUnknownPending
	}
	return l, i, parent, nil
}

func snapshot(n *node) *models.Comment {
	c := n.comment
	c.ReplyCount = n.replies.total
	return &c
}

// apply must be called with s.mu held. changed is false when the event was
// a stale page for a list that no longer exists.
func (s *Store) apply(ev Event) (Applied, bool, error) {
	out := Applied{Event: ev}

	switch ev := ev.(type) {
	case PendingInserted:
		l, err := s.listAt(ev.Pending.Parent)
		if err != nil {
			return out, false, err
		}
		n := &node{comment: ev.Comment, pendingID: ev.Pending.ID, status: Posting, replies: newList(0, true)}
		l.items = append([]*node{n}, l.items...)
		s.pending[ev.Pending.ID] = ev.Pending.Parent
		out.Comment = snapshot(n)

	case CommentConfirmed:
		l, i, parent, err := s.pendingNode(ev.PendingID)
		if err != nil {
			return out, false, err
		}
		n := l.items[i]
		if dup := l.index(ev.Comment.ID); dup >= 0 {
			// a page fetched meanwhile already brought it in and counted it
			if len(n.replies.items) == 0 {
				n.replies = l.items[dup].replies
			}
			l.remove(dup)
			// the server row is now held by n
			n.paged = true
			l.offset++
		} else {
			l.total++
			l.mutations++
		}
		n.comment = ev.Comment
		n.pendingID = 0
		n.status = Confirmed
		n.err = nil
		if ev.Comment.ReplyCount > n.replies.total {
			n.replies.total = ev.Comment.ReplyCount
		}
		delete(s.pending, ev.PendingID)
		out.Path = parent.Child(ev.Comment.ID)
		out.Comment = snapshot(n)

	case CommentFailed:
		l, i, _, err := s.pendingNode(ev.PendingID)
		if err != nil {
			return out, false, err
		}
		n := l.items[i]
		n.status = PostFailed
		n.err = ev.Err
		delete(s.pending, ev.PendingID)
		out.Comment = snapshot(n)

	case CommentEdited:
		l, i, err := s.locate(ev.Path)
		if err != nil {
			return out, false, err
		}
		n := l.items[i]
		n.comment.Content = ev.Content
		n.comment.ContentHTML = ev.ContentHTML
		if !ev.UpdatedAt.IsZero() {
			n.comment.UpdatedAt = ev.UpdatedAt
		}
		out.Path = ev.Path
		out.Comment = snapshot(n)

	case CommentDeleted:
		l, i, err := s.locate(ev.Path)
		if err != nil {
			return out, false, err
		}
		n := l.items[i]
		if ev.ReplyCount != nil && *ev.ReplyCount > n.replies.total {
			n.replies.total = *ev.ReplyCount
		}
		out.Path = ev.Path
		if n.replies.total > 0 || len(n.replies.items) > 0 {
			n.comment.IsDeleted = true
			n.comment.Content = nil
			n.comment.ImageURL = nil
			n.comment.ContentHTML = ""
			out.Comment = snapshot(n)
		} else {
			out.Removed = s.prune(ev.Path)
		}

	case LikeChanged:
		l, i, err := s.locate(ev.Path)
		if err != nil {
			return out, false, err
		}
		n := l.items[i]
		n.comment.LikeCount += ev.Delta
		if n.comment.LikeCount < 0 {
			n.comment.LikeCount = 0
		}
		n.comment.LikedByMe = ev.LikeID
		out.Path = ev.Path
		out.Comment = snapshot(n)

	case PageLoaded:
		l, err := s.listAt(ev.Parent)
		if err != nil {
			return out, false, err
		}
		if ev.origin != nil && ev.origin != l {
			return out, false, nil
		}
		l.merge(ev.Results)
		// keep a locally adjusted total over one counted before the change
		if ev.origin == nil || !l.known || ev.stamp == l.mutations {
			l.total = ev.Total
		}
		l.known = true
		if consumed := ev.Page * s.pageSize; consumed > l.offset {
			l.offset = consumed
		}
		if len(ev.Results) == 0 {
			l.exhausted = true
		}

	default:
		return out, false, fmt.Errorf("commenttree: unknown event %T", ev)
	}
	return out, true, nil
}

// prune removes the comment at path, then keeps removing tombstoned
// ancestors that are left with no replies.
func (s *Store) prune(path Path) []Path {
	var removed []Path
	for len(path) > 0 {
		l, i, err := s.locate(path)
		if err != nil {
			break
		}
		l.remove(i)
		if l.total > 0 {
			l.total--
		}
		l.mutations++
		removed = append(removed, path)

		parent := path.Parent()
		if parent == nil {
			break
		}
		pl, pi, err := s.locate(parent)
		if err != nil {
			break
		}
		p := pl.items[pi]
		if !p.comment.IsDeleted || p.replies.total > 0 || len(p.replies.items) > 0 {
			break
		}
		path = parent
	}
	return removed
}
