package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescanai/codescan/internal/analyzer"
	"github.com/codescanai/codescan/internal/models"
)

// countingAnalyzer returns a fixed result and counts invocations.
type countingAnalyzer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingAnalyzer) Name() string { return "counting" }

func (c *countingAnalyzer) Analyze(ctx context.Context, req analyzer.Request) (*models.AnalysisResult, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return &models.AnalysisResult{
		Score:  70,
		Issues: []models.Issue{{Line: 1, Severity: models.SeverityError, Message: "m", Type: "Security"}},
	}, nil
}

func (c *countingAnalyzer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordingStore collects history writes.
type recordingStore struct {
	mu      sync.Mutex
	records []*models.AnalysisRecord
}

func (r *recordingStore) Record(ctx context.Context, rec *models.AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingStore) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *recordingStore) last() *models.AnalysisRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[len(r.records)-1]
}

func TestScannerMissThenHit(t *testing.T) {
	backend := &countingAnalyzer{}
	cache := NewTTLCache(time.Minute)
	defer cache.Stop()
	s := NewIncrementalScanner(backend, cache, nil, nil, 0, nil)

	req := analyzer.Request{Code: "eval(x)", Language: "JavaScript"}

	first, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, first.CacheStatus)
	assert.Equal(t, 1, backend.callCount())

	second, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, second.CacheStatus)
	assert.Equal(t, 1, backend.callCount(), "a hit must not reach the analyzer")
	assert.Equal(t, first.Result.Score, second.Result.Score)
	assert.Equal(t, first.Result.Issues, second.Result.Issues)
}

func TestScannerLanguageSplitsCacheKey(t *testing.T) {
	backend := &countingAnalyzer{}
	cache := NewTTLCache(time.Minute)
	defer cache.Stop()
	s := NewIncrementalScanner(backend, cache, nil, nil, 0, nil)

	_, err := s.Scan(context.Background(), analyzer.Request{Code: "x", Language: "go"})
	require.NoError(t, err)
	_, err = s.Scan(context.Background(), analyzer.Request{Code: "x", Language: "python"})
	require.NoError(t, err)

	assert.Equal(t, 2, backend.callCount(), "same code in another language is another entry")

	// Case and padding do not split the key.
	_, err = s.Scan(context.Background(), analyzer.Request{Code: "x", Language: " GO "})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.callCount())
}

func TestScannerBlankCode(t *testing.T) {
	backend := &countingAnalyzer{}
	s := NewIncrementalScanner(backend, nil, nil, nil, 0, nil)

	_, err := s.Scan(context.Background(), analyzer.Request{Code: " \n\t "})
	assert.ErrorIs(t, err, models.ErrEmptyCode)
	assert.Equal(t, 0, backend.callCount())
}

func TestScannerWithoutCacheBypasses(t *testing.T) {
	backend := &countingAnalyzer{}
	s := NewIncrementalScanner(backend, nil, nil, nil, 0, nil)

	scan, err := s.Scan(context.Background(), analyzer.Request{Code: "x"})
	require.NoError(t, err)
	assert.Equal(t, CacheBypass, scan.CacheStatus)

	_, err = s.Scan(context.Background(), analyzer.Request{Code: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.callCount())
}

func TestScannerAnalyzerErrorPropagates(t *testing.T) {
	backend := &countingAnalyzer{err: errors.New("model on fire")}
	cache := NewTTLCache(time.Minute)
	defer cache.Stop()
	s := NewIncrementalScanner(backend, cache, nil, nil, 0, nil)

	_, err := s.Scan(context.Background(), analyzer.Request{Code: "x"})
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len(), "failures are never cached")
}

func TestScannerRecordsHistory(t *testing.T) {
	backend := &countingAnalyzer{}
	store := &recordingStore{}
	s := NewIncrementalScanner(backend, nil, store, nil, 0, nil)

	_, err := s.Scan(context.Background(), analyzer.Request{
		Code:     "eval(x)",
		Language: "javascript",
		Filename: "src/app.js",
	})
	require.NoError(t, err)

	// The write is detached from the request; wait for it.
	require.Eventually(t, func() bool { return store.len() == 1 }, time.Second, 5*time.Millisecond)

	rec := store.last()
	assert.Equal(t, "src/app.js", rec.FilePath)
	assert.Equal(t, "javascript", rec.Language)
	assert.NotEmpty(t, rec.ContentHash)
	assert.Equal(t, 70, rec.Score)
	assert.Equal(t, 1, rec.IssueCount)
	assert.Equal(t, 1, rec.ErrorCount)
	assert.Equal(t, 1, rec.SecurityCount)
	assert.Equal(t, CacheBypass, rec.CacheStatus)
}

func TestScannerClearCache(t *testing.T) {
	backend := &countingAnalyzer{}
	cache := NewTTLCache(time.Minute)
	defer cache.Stop()
	s := NewIncrementalScanner(backend, cache, nil, nil, 0, nil)

	_, err := s.Scan(context.Background(), analyzer.Request{Code: "a", Language: "go"})
	require.NoError(t, err)
	_, err = s.Scan(context.Background(), analyzer.Request{Code: "b", Language: "python"})
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	assert.Equal(t, 1, s.ClearCache("analysis:go:*"))
	assert.Equal(t, 1, s.ClearCache("analysis:*"))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, s.ClearCache(""), "empty pattern clears the analysis namespace, now empty")
}

func TestScannerNilCacheClearIsZero(t *testing.T) {
	s := NewIncrementalScanner(&countingAnalyzer{}, nil, nil, nil, 0, nil)
	assert.Equal(t, 0, s.ClearCache("analysis:*"))
}
