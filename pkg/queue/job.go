package queue

import "time"

// task is a queued Task with its result channel.
type task struct {
	name     string
	fn       Task
	done     chan error
	enqueued time.Time
}
