// Package status tracks the lifecycle of in-flight and completed
// analysis requests for later polling.
//
// Entries move pending -> in_progress -> completed|failed; terminal
// states are final and schedule expiry. A background sweep deletes
// expired entries on a fixed interval, so memory stays bounded
// regardless of request volume. The Tracker is an explicitly
// constructed component whose sweep timer is stopped by Close.
package status

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a request.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Failure is the stable error payload surfaced by status polling.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Entry records one request's lifecycle.
type Entry struct {
	ID        string
	Status    State
	Source    string
	StartTime time.Time
	EndTime   time.Time
	Result    any
	Error     *Failure
	ExpiresAt time.Time
}

const (
	// DefaultTTL is how long a terminal entry stays queryable.
	DefaultTTL = time.Hour
	// DefaultSweepInterval is how often expired entries are removed.
	DefaultSweepInterval = 5 * time.Minute
)

// Tracker holds entries keyed by request id. Every mutation is a single
// upsert under one lock, so no cross-request locking is needed.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	logger  *slog.Logger
	ticker  *time.Ticker
	done    chan struct{}
	now     func() time.Time
}

// NewTracker creates a Tracker and starts its sweep timer. Zero ttl or
// sweepInterval fall back to the defaults.
func NewTracker(ttl, sweepInterval time.Duration, logger *slog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		logger:  logger,
		ticker:  time.NewTicker(sweepInterval),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go t.sweepLoop()
	return t
}

// Close stops the sweep timer.
func (t *Tracker) Close() {
	t.ticker.Stop()
	close(t.done)
}

// Create registers a new pending entry. Called at request admission,
// before any subprocess is spawned, so failures are always attributable
// to an id.
func (t *Tracker) Create(id, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = &Entry{
		ID:        id,
		Status:    StatePending,
		Source:    source,
		StartTime: t.now(),
	}
}

// UpdateStatus transitions an entry. Terminal transitions set the end
// time and schedule expiry; transitions out of a terminal state are
// rejected.
func (t *Tracker) UpdateStatus(id string, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return fmt.Errorf("unknown request id: %s", id)
	}
	if e.Status.IsTerminal() {
		return fmt.Errorf("request %s already %s", id, e.Status)
	}
	e.Status = state
	if state.IsTerminal() {
		t.finalize(e)
	}
	return nil
}

// SetResult stores a result and marks the entry completed.
func (t *Tracker) SetResult(id string, result any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return fmt.Errorf("unknown request id: %s", id)
	}
	if e.Status.IsTerminal() {
		return fmt.Errorf("request %s already %s", id, e.Status)
	}
	e.Result = result
	e.Status = StateCompleted
	t.finalize(e)
	return nil
}

// SetError stores a failure and marks the entry failed.
func (t *Tracker) SetError(id string, failure Failure) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return fmt.Errorf("unknown request id: %s", id)
	}
	if e.Status.IsTerminal() {
		return fmt.Errorf("request %s already %s", id, e.Status)
	}
	e.Error = &failure
	e.Status = StateFailed
	t.finalize(e)
	return nil
}

// Get returns a copy of the entry, or false if absent.
func (t *Tracker) Get(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns copies of all live entries in unspecified order.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	return out
}

// Delete removes an entry explicitly.
func (t *Tracker) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// Len returns the live entry count.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// finalize stamps terminal bookkeeping. Caller holds the lock.
func (t *Tracker) finalize(e *Entry) {
	e.EndTime = t.now()
	e.ExpiresAt = t.now().Add(t.ttl)
}

func (t *Tracker) sweepLoop() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.Sweep()
		}
	}
}

// Sweep deletes every entry whose expiry has passed.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, e := range t.entries {
		if !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt) {
			delete(t.entries, id)
			t.logger.Debug("expired status entry removed", "request", id)
		}
	}
}
