// Package timeline holds the client-side copies of post aggregates: the
// feed, any number of walls and single-post detail views. One reducer keeps
// every copy of a post in step.
package timeline

import (
	"context"
	"fmt"
	"socialwall/internal/async"
	"socialwall/internal/client"
	"socialwall/internal/models"
	"sync"

	"go.uber.org/zap"
)

// API is the part of the REST client the board needs.
type API interface {
	Feed(ctx context.Context, page, perPage int) (*client.Page[models.Post], error)
	Wall(ctx context.Context, wallID uint, page, perPage int) (*client.Page[models.Post], error)
	Post(ctx context.Context, id uint) (*models.Post, error)
	CreatePost(ctx context.Context, p client.NewPost) (*models.Post, error)
	EditPost(ctx context.Context, id uint, p client.NewPost) (*models.Post, error)
	DeletePost(ctx context.Context, id uint) error
	Like(ctx context.Context, targetID uint, targetType models.TargetType) (*models.Like, error)
	Unlike(ctx context.Context, targetID uint, targetType models.TargetType) error
}

const DefaultPageSize = 10

const FeedName = "feed"

func WallName(wallID uint) string { return fmt.Sprintf("wall:%d", wallID) }

func DetailName(postID uint) string { return fmt.Sprintf("post:%d", postID) }

type Board struct {
	api      API
	pageSize int
	log      *zap.Logger

	mu          sync.Mutex
	collections map[string]*Collection
}

type Option func(*Board)

func WithPageSize(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Board) { b.log = l }
}

func NewBoard(api API, opts ...Option) *Board {
	b := &Board{
		api:         api,
		pageSize:    DefaultPageSize,
		log:         zap.NewNop(),
		collections: make(map[string]*Collection),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Feed returns the viewer's feed collection, creating it on first use.
func (b *Board) Feed() *Collection {
	return b.collection(FeedName, 0, func(ctx context.Context, page, perPage int) (*client.Page[models.Post], error) {
		return b.api.Feed(ctx, page, perPage)
	})
}

func (b *Board) Wall(wallID uint) *Collection {
	return b.collection(WallName(wallID), wallID, func(ctx context.Context, page, perPage int) (*client.Page[models.Post], error) {
		return b.api.Wall(ctx, wallID, page, perPage)
	})
}

// Detail is a one-post collection for the post page.
func (b *Board) Detail(postID uint) *Collection {
	return b.collection(DetailName(postID), 0, func(ctx context.Context, page, _ int) (*client.Page[models.Post], error) {
		if page > 1 {
			return &client.Page[models.Post]{Count: 1}, nil
		}
		p, err := b.api.Post(ctx, postID)
		if err != nil {
			return nil, err
		}
		return &client.Page[models.Post]{Results: []models.Post{*p}, Count: 1}, nil
	})
}

func (b *Board) collection(name string, wallID uint, fetch fetcher) *Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.collections[name]; ok {
		return c
	}
	c := &Collection{board: b, name: name, wallID: wallID, fetch: fetch}
	c.op = async.New(c.settle)
	b.collections[name] = c
	return c
}

// Drop cancels a collection's fetch and forgets it, e.g. when its view
// goes away.
func (b *Board) Drop(name string) {
	b.mu.Lock()
	c, ok := b.collections[name]
	delete(b.collections, name)
	b.mu.Unlock()
	if ok {
		c.op.Cancel()
	}
}

// Close cancels every in-flight fetch.
func (b *Board) Close() {
	b.mu.Lock()
	cs := make([]*Collection, 0, len(b.collections))
	for _, c := range b.collections {
		cs = append(cs, c)
	}
	b.mu.Unlock()
	for _, c := range cs {
		c.op.Cancel()
	}
}

// Find returns the first copy of postID held by any collection.
func (b *Board) Find(postID uint) (models.Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.collections {
		if i := c.index(postID); i >= 0 {
			return c.items[i], true
		}
	}
	return models.Post{}, false
}

// Apply is the single reducer for post aggregates.
func (b *Board) Apply(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev := ev.(type) {
	case PostCreated:
		for _, c := range b.collections {
			if c.name == FeedName || (c.wallID != 0 && c.wallID == ev.Post.WallID) {
				c.prepend(ev.Post)
			}
		}
	case PostEdited:
		b.each(ev.Post.ID, func(p *models.Post) {
			p.Content = ev.Post.Content
			p.ContentHTML = ev.Post.ContentHTML
			p.ImageURL = ev.Post.ImageURL
			p.Privacy = ev.Post.Privacy
			p.UpdatedAt = ev.Post.UpdatedAt
		})
	case PostDeleted:
		for _, c := range b.collections {
			c.drop(ev.PostID)
		}
	case PostLiked:
		b.each(ev.PostID, func(p *models.Post) {
			p.LikeCount = max(p.LikeCount+ev.Delta, 0)
			p.LikedByMe = ev.LikeID
		})
	case CommentCountChanged:
		b.each(ev.PostID, func(p *models.Post) {
			p.CommentCount = max(p.CommentCount+ev.Delta, 0)
		})
	case PreviewLiked:
		b.each(ev.PostID, func(p *models.Post) {
			pc := clonePreview(p.PreviewComment)
			if c := previewTarget(pc, ev.CommentID); c != nil {
				c.LikeCount = max(c.LikeCount+ev.Delta, 0)
				c.LikedByMe = ev.LikeID
				p.PreviewComment = pc
			}
		})
	case PreviewChanged:
		b.each(ev.PostID, func(p *models.Post) { setPreview(p, ev.ParentID, ev.Comment) })
	default:
		return fmt.Errorf("timeline: unknown event %T", ev)
	}
	return nil
}

func (b *Board) each(postID uint, fn func(*models.Post)) {
	for _, c := range b.collections {
		if i := c.index(postID); i >= 0 {
			fn(&c.items[i])
		}
	}
}

func clonePreview(pc *models.Comment) *models.Comment {
	if pc == nil {
		return nil
	}
	out := *pc
	if pc.Reply != nil {
		reply := *pc.Reply
		out.Reply = &reply
	}
	return &out
}

func previewTarget(pc *models.Comment, commentID uint) *models.Comment {
	if pc == nil {
		return nil
	}
	if pc.ID == commentID {
		return pc
	}
	if pc.Reply != nil && pc.Reply.ID == commentID {
		return pc.Reply
	}
	return nil
}

// setPreview copies the comment so collections never share one.
func setPreview(p *models.Post, parentID *uint, c *models.Comment) {
	var next *models.Comment
	if c != nil {
		cp := *c
		next = &cp
	}
	if parentID == nil {
		if next != nil && p.PreviewComment != nil && p.PreviewComment.ID == next.ID && next.Reply == nil {
			next.Reply = p.PreviewComment.Reply
		}
		p.PreviewComment = next
		return
	}
	if p.PreviewComment == nil || p.PreviewComment.ID != *parentID {
		return
	}
	pc := *p.PreviewComment
	pc.Reply = next
	p.PreviewComment = &pc
}
