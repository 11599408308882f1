package commenttree

import (
	"context"
	"socialwall/internal/async"
	"socialwall/internal/models"

	"go.uber.org/zap"
)

// Submit inserts a pending comment and posts it. The returned operation
// settles after the pending entry has been reconciled either way.
func (s *Store) Submit(ctx context.Context, parent Path, content string, author models.User) (Pending, *async.Operation[*models.Comment], error) {
	p, err := s.InsertPending(parent, content, author)
	if err != nil {
		return p, nil, err
	}

	var parentID *uint
	if len(parent) > 0 {
		id := parent.ID()
		parentID = &id
	}
	op := async.New(func(r async.Result[*models.Comment]) {
		var err error
		if r.State == async.Succeeded {
			err = s.ReconcileSuccess(p.ID, *r.Value)
		} else {
			err = s.ReconcileFailure(p.ID, r.Err)
		}
		if err != nil {
			s.log.Debug("reconcile skipped", zap.Uint64("pending_id", uint64(p.ID)), zap.Error(err))
		}
	})
	op.Start(ctx, func(ctx context.Context) (*models.Comment, error) {
		return s.api.CreateComment(ctx, s.postID, parentID, content)
	})
	return p, op, nil
}

// Edit saves new content and applies the server's version in place.
func (s *Store) Edit(ctx context.Context, path Path, content string) *async.Operation[*models.Comment] {
	path = append(Path(nil), path...)
	op := async.New(func(r async.Result[*models.Comment]) {
		if r.State != async.Succeeded {
			return
		}
		c := r.Value
		if err := s.Apply(CommentEdited{Path: path, Content: c.Content, ContentHTML: c.ContentHTML, UpdatedAt: c.UpdatedAt}); err != nil {
			s.log.Debug("edit not applied", zap.Uints("path", path), zap.Error(err))
		}
	})
	op.Start(ctx, func(ctx context.Context) (*models.Comment, error) {
		return s.api.EditComment(ctx, path.ID(), content)
	})
	return op
}

// Delete soft-deletes the comment; it stays as a tombstone while it has
// replies and disappears otherwise.
func (s *Store) Delete(ctx context.Context, path Path) *async.Operation[*models.Comment] {
	path = append(Path(nil), path...)
	op := async.New(func(r async.Result[*models.Comment]) {
		if r.State != async.Succeeded {
			return
		}
		replies := r.Value.ReplyCount
		if err := s.Apply(CommentDeleted{Path: path, ReplyCount: &replies}); err != nil {
			s.log.Debug("delete not applied", zap.Uints("path", path), zap.Error(err))
		}
	})
	op.Start(ctx, func(ctx context.Context) (*models.Comment, error) {
		return s.api.DeleteComment(ctx, path.ID())
	})
	return op
}

// ToggleLike likes the comment, or removes the viewer's like when there is
// one. The Value of a successful unlike is nil.
func (s *Store) ToggleLike(ctx context.Context, path Path) (*async.Operation[*models.Like], error) {
	s.mu.Lock()
	l, i, err := s.locate(path)
	var liked bool
	if err == nil {
		liked = l.items[i].comment.LikedByMe != nil
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	path = append(Path(nil), path...)
	op := async.New(func(r async.Result[*models.Like]) {
		if r.State != async.Succeeded {
			return
		}
		ev := LikeChanged{Path: path, Delta: -1}
		if r.Value != nil {
			id := r.Value.ID
			ev = LikeChanged{Path: path, LikeID: &id, Delta: 1}
		}
		if err := s.Apply(ev); err != nil {
			s.log.Debug("like not applied", zap.Uints("path", path), zap.Error(err))
		}
	})
	op.Start(ctx, func(ctx context.Context) (*models.Like, error) {
		if liked {
			return nil, s.api.Unlike(ctx, path.ID(), models.TargetComment)
		}
		return s.api.Like(ctx, path.ID(), models.TargetComment)
	})
	return op, nil
}
