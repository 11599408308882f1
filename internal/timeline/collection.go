package timeline

import (
	"context"
	"socialwall/internal/async"
	"socialwall/internal/client"
	"socialwall/internal/models"

	"go.uber.org/zap"
)

type fetcher func(ctx context.Context, page, perPage int) (*client.Page[models.Post], error)

type pageResult struct {
	page    int
	replace bool
	stamp   uint64
	data    *client.Page[models.Post]
}

// Collection is one paginated list of post aggregates. Its state is guarded
// by the board's mutex.
type Collection struct {
	board  *Board
	name   string
	wallID uint
	fetch  fetcher
	op     *async.Operation[pageResult]

	items     []models.Post
	total     int64
	known     bool
	exhausted bool
	// offset counts server rows consumed; local holds prepended posts no
	// page has returned yet, which occupy no consumed row.
	offset    int
	local     map[uint]bool
	mutations uint64
}

func (c *Collection) Name() string { return c.name }

// Refresh reloads the first page, cancelling any fetch still in flight.
func (c *Collection) Refresh(ctx context.Context) {
	perPage := c.board.pageSize
	c.op.Restart(ctx, func(ctx context.Context) (pageResult, error) {
		p, err := c.fetch(ctx, 1, perPage)
		return pageResult{page: 1, replace: true, data: p}, err
	})
}

// LoadMore fetches the next page. It reports false while a fetch is in
// flight or once the list is exhausted.
func (c *Collection) LoadMore(ctx context.Context) bool {
	c.board.mu.Lock()
	more := c.hasMore()
	perPage := c.board.pageSize
	next := c.offset/perPage + 1
	stamp := c.mutations
	c.board.mu.Unlock()
	if !more {
		return false
	}

	return c.op.Start(ctx, func(ctx context.Context) (pageResult, error) {
		p, err := c.fetch(ctx, next, perPage)
		return pageResult{page: next, stamp: stamp, data: p}, err
	})
}

func (c *Collection) Wait(ctx context.Context) error {
	_, err := c.op.Wait(ctx)
	return err
}

// State reports the collection's current fetch state and its last error.
func (c *Collection) State() (async.State, error) {
	r := c.op.Snapshot()
	return r.State, r.Err
}

func (c *Collection) Posts() []models.Post {
	c.board.mu.Lock()
	defer c.board.mu.Unlock()
	return append([]models.Post(nil), c.items...)
}

func (c *Collection) Total() int64 {
	c.board.mu.Lock()
	defer c.board.mu.Unlock()
	return c.total
}

func (c *Collection) HasMore() bool {
	c.board.mu.Lock()
	defer c.board.mu.Unlock()
	return c.hasMore()
}

func (c *Collection) hasMore() bool {
	if c.exhausted {
		return false
	}
	return !c.known || c.total > int64(len(c.items))
}

func (c *Collection) settle(r async.Result[pageResult]) {
	if r.State != async.Succeeded {
		c.board.log.Warn("load posts failed", zap.String("collection", c.name), zap.Error(r.Err))
		return
	}

	c.board.mu.Lock()
	defer c.board.mu.Unlock()
	res := r.Value
	if res.replace {
		c.items = nil
		c.local = nil
		c.offset = 0
		c.exhausted = false
	}
	c.merge(res.data.Results)
	if res.replace || !c.known || res.stamp == c.mutations {
		c.total = res.data.Count
	}
	c.known = true
	if consumed := res.page * c.board.pageSize; consumed > c.offset {
		c.offset = consumed
	}
	if len(res.data.Results) == 0 {
		c.exhausted = true
	}
}

func (c *Collection) merge(posts []models.Post) {
	for _, p := range posts {
		delete(c.local, p.ID)
		if c.index(p.ID) < 0 {
			c.items = append(c.items, p)
		}
	}
}

func (c *Collection) index(postID uint) int {
	for i := range c.items {
		if c.items[i].ID == postID {
			return i
		}
	}
	return -1
}

func (c *Collection) prepend(p models.Post) {
	if c.index(p.ID) >= 0 {
		return
	}
	c.items = append([]models.Post{p}, c.items...)
	if c.local == nil {
		c.local = make(map[uint]bool)
	}
	c.local[p.ID] = true
	c.total++
	c.mutations++
}

func (c *Collection) drop(postID uint) {
	i := c.index(postID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	if c.local[postID] {
		delete(c.local, postID)
	} else if c.offset > 0 {
		c.offset--
	}
	if c.total > 0 {
		c.total--
	}
	c.mutations++
}
