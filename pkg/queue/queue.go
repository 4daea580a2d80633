// Package queue runs units of work on a fixed set of workers behind a bounded queue.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPoolSaturated means the queue stayed full for the whole submit timeout.
	ErrPoolSaturated = errors.New("queue: pool saturated")
	ErrPoolClosed    = errors.New("queue: pool closed")
)

// Task is one unit of work. The context belongs to the pool, not the submitter.
type Task func(ctx context.Context) error

// QueueConfig contains the configuration for the pool.
type QueueConfig struct {
	Workers       int           // number of workers
	QueueSize     int           // pending tasks beyond the ones running
	SubmitTimeout time.Duration // how long Submit waits for room; 0 fails fast
}

func (c *QueueConfig) withDefaults() *QueueConfig {
	out := QueueConfig{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 2
	}
	if out.QueueSize < 0 {
		out.QueueSize = 0
	}
	return &out
}
