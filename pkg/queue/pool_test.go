package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"TravelFX/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, cfg *QueueConfig) *Pool {
	t.Helper()
	p := NewPool(logger.Nop(), cfg)
	p.Start()
	t.Cleanup(func() { _ = p.Stop(context.Background()) })
	return p
}

func TestPoolRunsTaskAndReturnsResult(t *testing.T) {
	p := newTestPool(t, &QueueConfig{Workers: 2, QueueSize: 4})

	want := errors.New("boom")
	done, err := p.Submit(context.Background(), "fails", func(context.Context) error { return want })
	require.NoError(t, err)
	assert.ErrorIs(t, <-done, want)

	done, err = p.Submit(context.Background(), "ok", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, <-done)
}

func TestPoolSaturatesWhenQueueFull(t *testing.T) {
	p := newTestPool(t, &QueueConfig{Workers: 1, QueueSize: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := func(context.Context) error {
		close(started)
		<-release
		return nil
	}

	first, err := p.Submit(context.Background(), "running", blocking)
	require.NoError(t, err)
	<-started

	second, err := p.Submit(context.Background(), "queued", func(context.Context) error { return nil })
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), "rejected", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolSaturated)

	close(release)
	assert.NoError(t, <-first)
	assert.NoError(t, <-second)
}

func TestPoolSubmitWaitsUpToTimeout(t *testing.T) {
	p := newTestPool(t, &QueueConfig{Workers: 1, QueueSize: 0, SubmitTimeout: 2 * time.Second})

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := p.Submit(context.Background(), "running", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	done, err := p.Submit(context.Background(), "waits", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, <-done)
}

func TestPoolRecoversPanics(t *testing.T) {
	p := newTestPool(t, &QueueConfig{Workers: 1, QueueSize: 1})

	done, err := p.Submit(context.Background(), "panics", func(context.Context) error { panic("bad state") })
	require.NoError(t, err)

	err = <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")

	done, err = p.Submit(context.Background(), "after", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, <-done)
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := NewPool(logger.Nop(), &QueueConfig{Workers: 1})
	p.Start()
	require.NoError(t, p.Stop(context.Background()))

	_, err := p.Submit(context.Background(), "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}
