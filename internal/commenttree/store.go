// Package commenttree keeps the loaded part of one post's comment tree
// consistent while the viewer paginates, replies, edits, deletes and likes
// at any depth. Every change goes through Store.Apply.
package commenttree

import (
	"context"
	"errors"
	"socialwall/internal/async"
	"socialwall/internal/client"
	"socialwall/internal/models"
	"sync"
	"time"

	"go.uber.org/zap"
)

// API is the part of the REST client the store drives. *client.Client
// satisfies it.
type API interface {
	PostComments(ctx context.Context, postID uint, page, perPage int) (*client.Page[models.Comment], error)
	CommentReplies(ctx context.Context, commentID uint, page, perPage int) (*client.Page[models.Comment], error)
	CreateComment(ctx context.Context, postID uint, parentID *uint, content string) (*models.Comment, error)
	EditComment(ctx context.Context, id uint, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id uint) (*models.Comment, error)
	Like(ctx context.Context, targetID uint, targetType models.TargetType) (*models.Like, error)
	Unlike(ctx context.Context, targetID uint, targetType models.TargetType) error
}

var (
	ErrNotLoaded      = errors.New("commenttree: comment is not loaded")
	ErrUnknownPending = errors.New("commenttree: unknown pending comment")
)

const DefaultPageSize = 10

type Store struct {
	api      API
	postID   uint
	pageSize int
	log      *zap.Logger

	mu          sync.Mutex
	root        *list
	nextPending PendingID
	pending     map[PendingID]Path
	listeners   map[int]Listener
	nextSub     int
	closed      bool
}

type Option func(*Store)

func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(api API, postID uint, opts ...Option) *Store {
	s := &Store{
		api:       api,
		postID:    postID,
		pageSize:  DefaultPageSize,
		log:       zap.NewNop(),
		root:      newList(0, false),
		pending:   make(map[PendingID]Path),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) PostID() uint { return s.postID }

// Subscribe registers fn for every applied event and returns its
// unsubscribe func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Apply is the single place the tree changes. Listeners run after the lock
// is released.
func (s *Store) Apply(ev Event) error {
	s.mu.Lock()
	applied, changed, err := s.apply(ev)
	var listeners []Listener
	if changed {
		for _, fn := range s.listeners {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range listeners {
		fn(applied)
	}
	return nil
}

// Entries returns a snapshot of the top-level list with loaded replies.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entries(s.root, nil)
}

// Find returns the entry at path.
func (s *Store) Find(path Path) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, i, err := s.locate(path)
	if err != nil {
		return Entry{}, err
	}
	return l.items[i].entry(path.Parent()), nil
}

// HasMore reports whether another top-level page may exist.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.hasMore()
}

// Total is the server-reported number of top-level comments.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.total
}

// LoadTopLevel fetches the next page of top-level comments, newest first.
// It reports false without touching the network when the list is exhausted
// or a fetch is already in flight.
func (s *Store) LoadTopLevel(ctx context.Context) bool {
	return s.load(ctx, nil)
}

// LoadReplies fetches the next page of replies of the comment at path,
// oldest first.
func (s *Store) LoadReplies(ctx context.Context, path Path) bool {
	if len(path) == 0 {
		return false
	}
	return s.load(ctx, path)
}

// Wait blocks until the fetch of the list under parent is over and returns
// its error.
func (s *Store) Wait(ctx context.Context, parent Path) error {
	s.mu.Lock()
	l, err := s.listAt(parent)
	var op *async.Operation[pageResult]
	if err == nil {
		op = l.fetch
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if op == nil {
		return nil
	}
	_, err = op.Wait(ctx)
	return err
}

// Reset cancels every fetch, drops the loaded tree and loads the first
// top-level page again.
func (s *Store) Reset(ctx context.Context) bool {
	s.mu.Lock()
	cancelFetches(s.root)
	s.root = newList(0, false)
	s.pending = make(map[PendingID]Path)
	s.mu.Unlock()
	return s.LoadTopLevel(ctx)
}

// Close cancels all in-flight fetches; later loads are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	cancelFetches(s.root)
	s.mu.Unlock()
}

func cancelFetches(l *list) {
	if l.fetch != nil {
		l.fetch.Cancel()
	}
	for _, it := range l.items {
		cancelFetches(it.replies)
	}
}

func (s *Store) load(ctx context.Context, parent Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	l, err := s.listAt(parent)
	if err != nil || !l.hasMore() {
		return false
	}
	if l.fetch == nil {
		l.fetch = s.newFetch(l, parent)
	}

	next := l.nextPage(s.pageSize)
	stamp := l.mutations
	parentID := parent.ID()
	return l.fetch.Start(ctx, func(ctx context.Context) (pageResult, error) {
		var (
			p   *client.Page[models.Comment]
			err error
		)
		if parentID == 0 {
			p, err = s.api.PostComments(ctx, s.postID, next, s.pageSize)
		} else {
			p, err = s.api.CommentReplies(ctx, parentID, next, s.pageSize)
		}
		return pageResult{page: next, stamp: stamp, data: p}, err
	})
}

func (s *Store) newFetch(l *list, parent Path) *async.Operation[pageResult] {
	parent = append(Path(nil), parent...)
	return async.New(func(r async.Result[pageResult]) {
		if r.State != async.Succeeded {
			s.log.Warn("load comments failed", zap.Uint("post_id", s.postID), zap.Uints("parent", parent), zap.Error(r.Err))
			return
		}
		err := s.Apply(PageLoaded{
			Parent:  parent,
			Page:    r.Value.page,
			Results: r.Value.data.Results,
			Total:   r.Value.data.Count,
			origin:  l,
			stamp:   r.Value.stamp,
		})
		if err != nil {
			s.log.Debug("dropping page", zap.Uints("parent", parent), zap.Error(err))
		}
	})
}

// InsertPending shows content at the head of the list under parent right
// away, before the server has seen it.
func (s *Store) InsertPending(parent Path, content string, author models.User) (Pending, error) {
	s.mu.Lock()
	s.nextPending++
	id := s.nextPending
	s.mu.Unlock()

	c := models.Comment{
		PostID:    s.postID,
		UserID:    author.ID,
		User:      author,
		Content:   &content,
		CreatedAt: time.Now(),
	}
	if len(parent) > 0 {
		pid := parent.ID()
		c.ParentID = &pid
	}
	p := Pending{ID: id, Parent: append(Path(nil), parent...)}
	return p, s.Apply(PendingInserted{Pending: p, Comment: c})
}

func (s *Store) ReconcileSuccess(id PendingID, c models.Comment) error {
	return s.Apply(CommentConfirmed{PendingID: id, Comment: c})
}

func (s *Store) ReconcileFailure(id PendingID, err error) error {
	return s.Apply(CommentFailed{PendingID: id, Err: err})
}

func (s *Store) ApplyEdit(path Path, content *string) error {
	return s.Apply(CommentEdited{Path: path, Content: content})
}

func (s *Store) ApplyDelete(path Path) error {
	return s.Apply(CommentDeleted{Path: path})
}

func (s *Store) ApplyLikeDelta(path Path, likeID *uint, delta int64) error {
	return s.Apply(LikeChanged{Path: path, LikeID: likeID, Delta: delta})
}
