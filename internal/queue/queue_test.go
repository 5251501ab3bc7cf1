package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRunsTask(t *testing.T) {
	q := New(1)
	ran := false
	err := q.Do(context.Background(), func() error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("Do: ran=%v err=%v", ran, err)
	}
}

func TestDoPropagatesTaskError(t *testing.T) {
	q := New(1)
	boom := errors.New("task failed")
	if err := q.Do(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestConcurrencyNeverExceedsLimit(t *testing.T) {
	const limit = 2
	q := New(limit)
	var active, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func() error {
				n := atomic.AddInt64(&active, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt64(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if p := atomic.LoadInt64(&peak); p > limit {
		t.Errorf("peak concurrency %d exceeded limit %d", p, limit)
	}
}

func TestFIFOAdmissionOrder(t *testing.T) {
	q := New(1)
	var order []int
	var mu sync.Mutex

	// Occupy the single slot so subsequent Do calls must queue.
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func() error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = q.Do(context.Background(), func() error {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return nil
			})
		}(i)
		// Stagger enqueue so FIFO order is deterministic.
		time.Sleep(5 * time.Millisecond)
	}

	close(hold)
	wg.Wait()

	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			t.Fatalf("admission order not FIFO: %v", order)
		}
	}
}

func TestDoContextCancelledWhileWaiting(t *testing.T) {
	q := New(1)
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func() error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Do(ctx, func() error {
		t.Error("task should not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	close(hold)

	// The slot must still be usable afterwards.
	if err := q.Do(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("queue unusable after cancelled waiter: %v", err)
	}
}

func TestLimitClamped(t *testing.T) {
	if got := New(0).Limit(); got != 1 {
		t.Errorf("Limit() = %d, want 1", got)
	}
}
