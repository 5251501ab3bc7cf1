package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/backend"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/status"
)

type fakeBackend struct {
	name     string
	findings []review.Finding
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Analyze(ctx context.Context, prompt string, opts backend.AnalyzeOptions) (*review.AnalysisResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &review.AnalysisResult{
		ID:       opts.RequestID,
		Source:   f.name,
		Findings: f.findings,
		Summary:  review.ComputeSummary(f.findings),
	}, nil
}

func intPtr(n int) *int { return &n }

func newDispatcher(t *testing.T, backends ...*fakeBackend) *Dispatcher {
	t.Helper()
	d := New(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(d.Close)
	for _, b := range backends {
		d.Register(b, 1)
	}
	return d
}

func TestReviewSingleBackend(t *testing.T) {
	fake := &fakeBackend{name: "gemini", findings: []review.Finding{{
		Type: review.TypeBug, Severity: review.SeverityHigh,
		Line: intPtr(3), Title: "t", Description: "d",
	}}}
	d := newDispatcher(t, fake)

	res, err := d.Review(context.Background(), "gemini", Request{Prompt: "code"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ID == "" {
		t.Error("result should carry the generated request id")
	}
	entry, ok := d.Status(res.ID)
	if !ok {
		t.Fatal("request should be tracked")
	}
	if entry.Status != status.StateCompleted {
		t.Errorf("status = %s, want completed", entry.Status)
	}
	if entry.Result == nil {
		t.Error("completed entry should hold the result")
	}
}

func TestReviewUnknownBackend(t *testing.T) {
	d := newDispatcher(t)
	_, err := d.Review(context.Background(), "nope", Request{Prompt: "code"})
	var ube *UnknownBackendError
	if !errors.As(err, &ube) {
		t.Fatalf("err = %v, want UnknownBackendError", err)
	}
}

func TestReviewFailureRecordsErrorCode(t *testing.T) {
	fake := &fakeBackend{name: "gemini", err: &backend.AnalysisError{
		Backend: "gemini",
		Err:     &backend.TimeoutError{Backend: "gemini", Timeout: time.Second},
	}}
	d := newDispatcher(t, fake)

	_, err := d.Review(context.Background(), "gemini", Request{Prompt: "code"})
	if err == nil {
		t.Fatal("expected failure")
	}

	// The id is generated internally; find the single tracked entry.
	found, ok := findOnlyEntry(t, d)
	if !ok {
		t.Fatal("no tracked entry")
	}
	if found.Status != status.StateFailed {
		t.Errorf("status = %s, want failed", found.Status)
	}
	if found.Error == nil || found.Error.Code != backend.CodeTimeout {
		t.Errorf("error = %+v, want code TIMEOUT_ERROR", found.Error)
	}
}

func TestReviewCombinedMergesResults(t *testing.T) {
	a := &fakeBackend{name: "gemini", findings: []review.Finding{{
		Type: review.TypeBug, Severity: review.SeverityHigh,
		Line: intPtr(10), Title: "Null deref", Description: "Pointer may be nil",
	}}}
	b := &fakeBackend{name: "claude", findings: []review.Finding{{
		Type: review.TypeBug, Severity: review.SeverityCritical,
		Line: intPtr(10), Title: "Nil dereference", Description: "Check before use",
	}}}
	d := newDispatcher(t, a, b)

	res, err := d.ReviewCombined(context.Background(), Request{Prompt: "code"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("got %d findings, want 1 after dedup", len(res.Findings))
	}
	if res.Findings[0].Severity != review.SeverityCritical {
		t.Errorf("severity = %s, want critical", res.Findings[0].Severity)
	}
	if a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.calls.Load(), b.calls.Load())
	}
}

func TestReviewCombinedToleratesPartialFailure(t *testing.T) {
	ok := &fakeBackend{name: "gemini", findings: []review.Finding{{
		Type: review.TypeBug, Severity: review.SeverityHigh,
		Line: intPtr(1), Title: "t", Description: "d",
	}}}
	bad := &fakeBackend{name: "claude", err: errors.New("boom")}
	d := newDispatcher(t, ok, bad)

	res, err := d.ReviewCombined(context.Background(), Request{Prompt: "code"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(res.Findings))
	}
}

func TestReviewCombinedAllFailed(t *testing.T) {
	a := &fakeBackend{name: "gemini", err: errors.New("a down")}
	b := &fakeBackend{name: "claude", err: errors.New("b down")}
	d := newDispatcher(t, a, b)

	_, err := d.ReviewCombined(context.Background(), Request{Prompt: "code"})
	var afe *AllFailedError
	if !errors.As(err, &afe) {
		t.Fatalf("err = %v, want AllFailedError", err)
	}
	if len(afe.Failures) != 2 {
		t.Errorf("failures = %v", afe.Failures)
	}
	if !strings.Contains(err.Error(), "claude") || !strings.Contains(err.Error(), "gemini") {
		t.Errorf("error should name both backends: %v", err)
	}

	entry, ok := findOnlyEntry(t, d)
	if !ok {
		t.Fatal("no tracked entry")
	}
	if entry.Status != status.StateFailed {
		t.Errorf("status = %s, want failed", entry.Status)
	}
}

func TestReviewCombinedSequential(t *testing.T) {
	// With a shared counter checked on entry, parallel execution would
	// observe overlap; sequential must never.
	var inFlight atomic.Int32
	var overlapped atomic.Bool

	mk := func(name string) *fakeBackend {
		return &fakeBackend{name: name, delay: 20 * time.Millisecond}
	}
	a, b := mk("gemini"), mk("claude")
	d := New(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(d.Close)
	d.Register(&guard{inner: a, inFlight: &inFlight, overlapped: &overlapped}, 1)
	d.Register(&guard{inner: b, inFlight: &inFlight, overlapped: &overlapped}, 1)

	if _, err := d.ReviewCombined(context.Background(), Request{Prompt: "code", Sequential: true}); err != nil {
		t.Fatal(err)
	}
	if overlapped.Load() {
		t.Error("backends overlapped in sequential mode")
	}
}

func TestReviewCombinedSubsetSelection(t *testing.T) {
	a := &fakeBackend{name: "gemini"}
	b := &fakeBackend{name: "claude"}
	d := newDispatcher(t, a, b)

	if _, err := d.ReviewCombined(context.Background(), Request{
		Prompt:   "code",
		Backends: []string{"claude"},
	}); err != nil {
		t.Fatal(err)
	}
	if a.calls.Load() != 0 {
		t.Error("unselected backend should not run")
	}
	if b.calls.Load() != 1 {
		t.Error("selected backend should run once")
	}
}

func TestBackendsSorted(t *testing.T) {
	d := newDispatcher(t, &fakeBackend{name: "gemini"}, &fakeBackend{name: "claude"})
	names := d.Backends()
	if len(names) != 2 || names[0] != "claude" || names[1] != "gemini" {
		t.Errorf("names = %v", names)
	}
}

type guard struct {
	inner      *fakeBackend
	inFlight   *atomic.Int32
	overlapped *atomic.Bool
}

func (g *guard) Name() string { return g.inner.Name() }

func (g *guard) Analyze(ctx context.Context, prompt string, opts backend.AnalyzeOptions) (*review.AnalysisResult, error) {
	if g.inFlight.Add(1) > 1 {
		g.overlapped.Store(true)
	}
	defer g.inFlight.Add(-1)
	return g.inner.Analyze(ctx, prompt, opts)
}

func findOnlyEntry(t *testing.T, d *Dispatcher) (status.Entry, bool) {
	t.Helper()
	entries := d.tracker.Entries()
	if len(entries) != 1 {
		return status.Entry{}, false
	}
	return entries[0], true
}
