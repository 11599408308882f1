// Package async holds the result type shared by every client-side network
// action: one Operation per action or per paginated list, with explicit
// state instead of loading/error flags.
package async

import (
	"context"
	"sync"
)

type State int

const (
	Idle State = iota
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "idle"
}

// Result is a point-in-time copy of an Operation.
type Result[T any] struct {
	State State
	Value T
	Err   error
}

type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Operation tracks one cancellable unit of async work. The zero value is
// ready to use. A run that is cancelled or superseded never changes the
// state and never reaches the settle callback.
type Operation[T any] struct {
	mu       sync.Mutex
	state    State
	value    T
	err      error
	current  *run
	onSettle func(Result[T])
}

// New returns an Operation that calls onSettle after every run that
// completes without being cancelled.
func New[T any](onSettle func(Result[T])) *Operation[T] {
	return &Operation[T]{onSettle: onSettle}
}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Start runs fn in its own goroutine. It reports false and does nothing when
// a run is already in flight.
func (o *Operation[T]) Start(ctx context.Context, fn func(context.Context) (T, error)) bool {
	o.mu.Lock()
	if o.state == InFlight {
		o.mu.Unlock()
		return false
	}
	r := o.begin(ctx)
	o.mu.Unlock()

	go o.run(r, fn)
	return true
}

// Restart cancels any in-flight run and starts fn in its place.
func (o *Operation[T]) Restart(ctx context.Context, fn func(context.Context) (T, error)) {
	o.mu.Lock()
	o.abort()
	r := o.begin(ctx)
	o.mu.Unlock()

	go o.run(r, fn)
}

// Cancel stops the in-flight run, if any, and returns to Idle with
// context.Canceled as the error. The previous value is kept.
func (o *Operation[T]) Cancel() {
	o.mu.Lock()
	if o.abort() {
		o.state = Idle
		o.err = context.Canceled
	}
	o.mu.Unlock()
}

// Done is closed when the current run settles or is cancelled. With nothing
// in flight it is already closed.
func (o *Operation[T]) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return closed
	}
	return o.current.done
}

// Wait blocks until the current run is over or ctx ends.
func (o *Operation[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-o.Done():
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	r := o.Snapshot()
	return r.Value, r.Err
}

func (o *Operation[T]) Snapshot() Result[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Result[T]{State: o.state, Value: o.value, Err: o.err}
}

func (o *Operation[T]) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == InFlight
}

// begin must be called with o.mu held.
func (o *Operation[T]) begin(parent context.Context) *run {
	ctx, cancel := context.WithCancel(parent)
	r := &run{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	o.current = r
	o.state = InFlight
	o.err = nil
	return r
}

// abort must be called with o.mu held.
func (o *Operation[T]) abort() bool {
	r := o.current
	if r == nil {
		return false
	}
	o.current = nil
	r.cancel()
	close(r.done)
	return true
}

func (o *Operation[T]) run(r *run, fn func(context.Context) (T, error)) {
	v, err := fn(r.ctx)

	o.mu.Lock()
	if o.current != r {
		// cancelled or superseded
		o.mu.Unlock()
		return
	}
	o.current = nil
	if err != nil {
		o.state, o.err = Failed, err
	} else {
		o.state, o.value, o.err = Succeeded, v, nil
	}
	res := Result[T]{State: o.state, Value: o.value, Err: o.err}
	o.mu.Unlock()

	if o.onSettle != nil {
		o.onSettle(res)
	}
	r.cancel()
	close(r.done)
}
