package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationSucceeds(t *testing.T) {
	var settled []Result[int]
	op := New(func(r Result[int]) { settled = append(settled, r) })
	assert.Equal(t, Idle, op.Snapshot().State)

	require.True(t, op.Start(context.Background(), func(context.Context) (int, error) { return 42, nil }))
	v, err := op.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, Succeeded, op.Snapshot().State)
	require.Len(t, settled, 1)
	assert.Equal(t, 42, settled[0].Value)
}

func TestOperationFails(t *testing.T) {
	var op Operation[string]
	boom := errors.New("boom")
	op.Start(context.Background(), func(context.Context) (string, error) { return "", boom })

	_, err := op.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, op.Snapshot().State)
	assert.Equal(t, "failed", op.Snapshot().State.String())
}

func TestSecondStartIsDropped(t *testing.T) {
	var op Operation[int]
	release := make(chan struct{})
	var calls atomic.Int32

	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}
	require.True(t, op.Start(context.Background(), fn))
	assert.False(t, op.Start(context.Background(), fn))
	assert.True(t, op.InFlight())

	close(release)
	_, err := op.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelDiscardsResult(t *testing.T) {
	settled := make(chan Result[int], 1)
	op := New(func(r Result[int]) { settled <- r })
	started := make(chan struct{})

	op.Start(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started
	op.Cancel()

	snap := op.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.ErrorIs(t, snap.Err, context.Canceled)

	select {
	case <-op.Done():
	default:
		t.Fatal("Done should be closed after Cancel")
	}
	select {
	case <-settled:
		t.Fatal("cancelled run must not settle")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRestartSupersedes(t *testing.T) {
	settled := make(chan int, 2)
	op := New(func(r Result[int]) { settled <- r.Value })
	slow := make(chan struct{})

	op.Start(context.Background(), func(ctx context.Context) (int, error) {
		<-slow
		return 1, nil
	})
	op.Restart(context.Background(), func(context.Context) (int, error) { return 2, nil })

	v, err := op.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	close(slow)

	assert.Equal(t, 2, <-settled)
	select {
	case v := <-settled:
		t.Fatalf("superseded run settled with %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWaitHonoursContext(t *testing.T) {
	var op Operation[int]
	op.Start(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := op.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	op.Cancel()
}
