package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/aggregate"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/backend"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/queue"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/status"
)

// Analyzer is the per-backend analysis surface the dispatcher drives.
// *backend.Client satisfies it; tests substitute fakes.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, prompt string, opts backend.AnalyzeOptions) (*review.AnalysisResult, error)
}

// Request carries one review submission.
type Request struct {
	Prompt string
	// Backends selects which registered backends run; empty means all,
	// in registration-name order.
	Backends []string
	Filter   review.SeverityFilter
	Timeout  time.Duration
	// Sequential runs combined reviews one backend at a time instead of
	// in parallel.
	Sequential bool
	// IncludeIndividual attaches each backend's raw result to the
	// combined output.
	IncludeIndividual bool
}

// Options configures a Dispatcher.
type Options struct {
	Tracker *status.Tracker
	Logger  *slog.Logger
	// Threshold overrides the similarity threshold used when merging
	// combined results. Zero uses aggregate.DefaultThreshold.
	Threshold float64
}

// Dispatcher routes review requests to registered backends, bounding
// per-backend concurrency and recording request lifecycle in the status
// tracker.
type Dispatcher struct {
	mu       sync.Mutex
	backends map[string]Analyzer
	queues   map[string]*queue.Queue

	tracker   *status.Tracker
	logger    *slog.Logger
	threshold float64
}

// New creates a Dispatcher. A nil tracker gets a default one.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = status.NewTracker(0, 0, logger)
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = aggregate.DefaultThreshold
	}
	return &Dispatcher{
		backends:  make(map[string]Analyzer),
		queues:    make(map[string]*queue.Queue),
		tracker:   tracker,
		logger:    logger,
		threshold: threshold,
	}
}

// Register adds a backend with its concurrency limit. Registering the
// same name again replaces the analyzer and its queue.
func (d *Dispatcher) Register(a Analyzer, maxConcurrent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backends[a.Name()] = a
	d.queues[a.Name()] = queue.New(maxConcurrent)
}

// Backends returns the registered backend names, sorted.
func (d *Dispatcher) Backends() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.backends))
	for name := range d.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns the tracked entry for a request id.
func (d *Dispatcher) Status(id string) (status.Entry, bool) {
	return d.tracker.Get(id)
}

// Close releases the tracker's sweep timer.
func (d *Dispatcher) Close() {
	d.tracker.Close()
}

// Review runs a single-backend review. The request is tracked from
// admission: failures carry a stable error code and the result stays
// queryable by id until it expires.
func (d *Dispatcher) Review(ctx context.Context, backendName string, req Request) (*review.AnalysisResult, error) {
	a, q, err := d.lookup(backendName)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	d.tracker.Create(id, backendName)

	result, err := d.runOne(ctx, id, a, q, req)
	if err != nil {
		d.fail(id, err)
		return nil, err
	}
	if terr := d.tracker.SetResult(id, result); terr != nil {
		d.logger.Warn("recording result", "request", id, "error", terr)
	}
	return result, nil
}

// ReviewCombined runs the request on several backends and merges their
// findings. Individual backend failures are tolerated as long as at
// least one backend produces a usable result; a review where every
// backend fails returns an AllFailedError.
func (d *Dispatcher) ReviewCombined(ctx context.Context, req Request) (*aggregate.Result, error) {
	names := req.Backends
	if len(names) == 0 {
		names = d.Backends()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no backends registered")
	}

	id := uuid.NewString()
	d.tracker.Create(id, "combined")

	results, failures := d.fanOut(ctx, id, names, req)
	if len(results) == 0 {
		err := &AllFailedError{Failures: failures}
		d.fail(id, err)
		return nil, err
	}
	for name, ferr := range failures {
		d.logger.Warn("backend failed in combined review",
			"request", id, "backend", name, "error", ferr)
	}

	merged, err := aggregate.Merge(id, results, aggregate.Options{
		Threshold:                d.threshold,
		TotalBackends:            len(names),
		IncludeIndividualResults: req.IncludeIndividual,
	})
	if err != nil {
		d.fail(id, err)
		return nil, err
	}
	if terr := d.tracker.SetResult(id, merged); terr != nil {
		d.logger.Warn("recording result", "request", id, "error", terr)
	}
	return merged, nil
}

// fanOut invokes each named backend, in parallel unless the request is
// sequential, and partitions outcomes into results and failures.
func (d *Dispatcher) fanOut(ctx context.Context, id string, names []string, req Request) ([]*review.AnalysisResult, map[string]error) {
	if terr := d.tracker.UpdateStatus(id, status.StateInProgress); terr != nil {
		d.logger.Warn("recording status", "request", id, "error", terr)
	}

	type outcome struct {
		name   string
		result *review.AnalysisResult
		err    error
	}
	outcomes := make([]outcome, len(names))

	run := func(i int, name string) {
		a, q, err := d.lookup(name)
		if err != nil {
			outcomes[i] = outcome{name: name, err: err}
			return
		}
		subID := id + ":" + name
		var result *review.AnalysisResult
		err = q.Do(ctx, func() error {
			var aerr error
			result, aerr = a.Analyze(ctx, req.Prompt, backend.AnalyzeOptions{
				RequestID: subID,
				Timeout:   req.Timeout,
				Filter:    req.Filter,
			})
			return aerr
		})
		outcomes[i] = outcome{name: name, result: result, err: err}
	}

	if req.Sequential {
		for i, name := range names {
			run(i, name)
		}
	} else {
		var wg sync.WaitGroup
		for i, name := range names {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				run(i, name)
			}(i, name)
		}
		wg.Wait()
	}

	var results []*review.AnalysisResult
	failures := make(map[string]error)
	for _, o := range outcomes {
		if o.err != nil {
			failures[o.name] = o.err
			continue
		}
		results = append(results, o.result)
	}
	return results, failures
}

// runOne executes a single backend request through its queue.
func (d *Dispatcher) runOne(ctx context.Context, id string, a Analyzer, q *queue.Queue, req Request) (*review.AnalysisResult, error) {
	if terr := d.tracker.UpdateStatus(id, status.StateInProgress); terr != nil {
		d.logger.Warn("recording status", "request", id, "error", terr)
	}
	var result *review.AnalysisResult
	err := q.Do(ctx, func() error {
		var aerr error
		result, aerr = a.Analyze(ctx, req.Prompt, backend.AnalyzeOptions{
			RequestID: id,
			Timeout:   req.Timeout,
			Filter:    req.Filter,
		})
		return aerr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) lookup(name string) (Analyzer, *queue.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.backends[name]
	if !ok {
		return nil, nil, &UnknownBackendError{Name: name}
	}
	return a, d.queues[name], nil
}

func (d *Dispatcher) fail(id string, err error) {
	failure := status.Failure{Code: backend.ErrorCode(err), Message: err.Error()}
	if terr := d.tracker.SetError(id, failure); terr != nil {
		d.logger.Warn("recording failure", "request", id, "error", terr)
	}
}

// UnknownBackendError reports a request naming an unregistered backend.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend: %s", e.Name)
}

// AllFailedError reports a combined review in which no backend produced
// a usable result.
type AllFailedError struct {
	Failures map[string]error
}

func (e *AllFailedError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Failures[name]))
	}
	return "all backends failed: " + strings.Join(parts, "; ")
}
