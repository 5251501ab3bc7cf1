// Package queue bounds how many tasks may run concurrently for one
// backend, admitting waiters in FIFO order. Queue depth is unbounded;
// only admission into execution is bounded.
package queue

import (
	"container/list"
	"context"
	"sync"
)

// Queue is a fixed-limit concurrency gate with FIFO admission.
type Queue struct {
	mu      sync.Mutex
	limit   int
	running int
	waiters *list.List // of chan struct{}
}

// New creates a Queue. A limit below 1 is treated as 1.
func New(limit int) *Queue {
	if limit < 1 {
		limit = 1
	}
	return &Queue{limit: limit, waiters: list.New()}
}

// Limit returns the configured concurrency limit.
func (q *Queue) Limit() int { return q.limit }

// Do runs task as soon as a slot is free, blocking in FIFO order behind
// earlier waiters. Context cancellation while waiting abandons the slot
// request and returns ctx.Err().
func (q *Queue) Do(ctx context.Context, task func() error) error {
	release, err := q.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return task()
}

func (q *Queue) acquire(ctx context.Context) (func(), error) {
	q.mu.Lock()
	if q.running < q.limit && q.waiters.Len() == 0 {
		q.running++
		q.mu.Unlock()
		return q.release, nil
	}

	ready := make(chan struct{})
	elem := q.waiters.PushBack(ready)
	q.mu.Unlock()

	select {
	case <-ready:
		return q.release, nil
	case <-ctx.Done():
		q.mu.Lock()
		select {
		case <-ready:
			// Admitted between ctx firing and lock acquisition; give the
			// slot back.
			q.mu.Unlock()
			q.release()
		default:
			q.waiters.Remove(elem)
			q.mu.Unlock()
		}
		return nil, ctx.Err()
	}
}

func (q *Queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if front := q.waiters.Front(); front != nil {
		q.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	q.running--
}
