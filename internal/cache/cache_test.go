package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

func sampleResult(id string) *review.AnalysisResult {
	return &review.AnalysisResult{
		ID:                id,
		Source:            "gemini",
		OverallAssessment: "looks fine",
	}
}

func TestCache_PutGet(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	key := "test-key"
	value := sampleResult("r1")

	// Miss before put
	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss before put")
	}

	if err := c.Put(key, value); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Expected cache hit after put")
	}
	if got.ID != value.ID || got.OverallAssessment != value.OverallAssessment {
		t.Errorf("Got = %+v, want %+v", got, value)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 1) // 1 second TTL
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	key := "expire-test"
	if err := c.Put(key, sampleResult("r1")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, ok := c.Get(key); !ok {
		t.Error("Expected cache hit before expiration")
	}

	time.Sleep(1100 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss after expiration")
	}
	// Expired entry file is removed on read.
	if _, err := os.Stat(filepath.Join(dir, HashKey(key)+".json")); !os.IsNotExist(err) {
		t.Error("Expired entry should be removed")
	}
}

func TestCache_Disabled(t *testing.T) {
	c, err := New(false, "", 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := c.Put("k", sampleResult("r1")); err != nil {
		t.Errorf("Put on disabled cache should be a no-op, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Disabled cache should always miss")
	}
	if c.Enabled() {
		t.Error("Enabled() should be false")
	}
}

func TestCache_GetOrCompute(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	calls := 0
	compute := func() (*review.AnalysisResult, error) {
		calls++
		return sampleResult("computed"), nil
	}

	got, fromCache, err := c.GetOrCompute("k", compute)
	if err != nil {
		t.Fatal(err)
	}
	if fromCache {
		t.Error("first call should compute")
	}
	if got.ID != "computed" {
		t.Errorf("got = %+v", got)
	}

	got, fromCache, err = c.GetOrCompute("k", compute)
	if err != nil {
		t.Fatal(err)
	}
	if !fromCache {
		t.Error("second call should hit the cache")
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if got.ID != "computed" {
		t.Errorf("got = %+v", got)
	}
}

func TestCache_GetOrComputeError(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	boom := errors.New("backend down")
	_, _, err = c.GetOrCompute("k", func() (*review.AnalysisResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the compute error", err)
	}
	// Failures are not cached.
	if _, ok := c.Get("k"); ok {
		t.Error("failed computation should not be cached")
	}
}

func TestCache_ClearAndStats(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(k, sampleResult(k)); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.TotalBytes == 0 {
		t.Error("TotalBytes should be nonzero")
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	stats, err = c.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries after clear = %d, want 0", stats.Entries)
	}
}

func TestBuildCacheKey(t *testing.T) {
	k1 := BuildCacheKey("gemini", "m", "prompt")
	k2 := BuildCacheKey("claude", "m", "prompt")
	if k1 == k2 {
		t.Error("different backends should produce different keys")
	}
	if k1 != BuildCacheKey("gemini", "m", "prompt") {
		t.Error("key should be deterministic")
	}
}
