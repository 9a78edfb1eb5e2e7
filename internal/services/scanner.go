package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/codescanai/codescan/internal/analyzer"
	"github.com/codescanai/codescan/internal/crypto"
	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/observability"
)

// Cache status values surfaced to clients via the X-Cache header.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

// historyWriteTimeout bounds the detached history insert after a scan.
const historyWriteTimeout = 5 * time.Second

// HistoryStore persists finished analyses. The scanner treats persistence
// as best effort: a failed write is logged, never surfaced to the caller.
type HistoryStore interface {
	Record(ctx context.Context, rec *models.AnalysisRecord) error
}

// IncrementalScanner runs analyses through a content-hash cache so that
// resubmitting unchanged code costs a map lookup instead of an analyzer
// run (or a model round trip).
type IncrementalScanner struct {
	analyzer    analyzer.Analyzer
	cache       *TTLCache    // nil disables caching
	history     HistoryStore // nil disables persistence
	collector   *observability.Collector
	logger      *slog.Logger
	scanTimeout time.Duration
}

func NewIncrementalScanner(
	a analyzer.Analyzer,
	cache *TTLCache,
	history HistoryStore,
	collector *observability.Collector,
	scanTimeout time.Duration,
	logger *slog.Logger,
) *IncrementalScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncrementalScanner{
		analyzer:    a,
		cache:       cache,
		history:     history,
		collector:   collector,
		logger:      logger,
		scanTimeout: scanTimeout,
	}
}

// ScanResult pairs the analysis result with how it was obtained.
type ScanResult struct {
	Result      *models.AnalysisResult
	CacheStatus string
	Duration    time.Duration
}

// AnalyzerName reports which analyzer backs this scanner.
func (s *IncrementalScanner) AnalyzerName() string {
	return s.analyzer.Name()
}

// Scan analyzes req, serving identical content from cache when possible.
func (s *IncrementalScanner) Scan(ctx context.Context, req analyzer.Request) (*ScanResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, models.ErrEmptyCode
	}

	if s.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scanTimeout)
		defer cancel()
	}

	started := time.Now()
	lang := langLabel(req.Language)
	key := cacheKey(req.Language, req.Code)

	status := CacheBypass
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			elapsed := time.Since(started)
			observability.CacheHits.Inc()
			observability.AnalysisTotal.WithLabelValues(lang, "hit").Inc()
			observability.AnalysisLatency.WithLabelValues(lang).Observe(elapsed.Seconds())
			s.collector.ObserveAnalysis(elapsed.Seconds(), true, cached)
			s.recordHistory(req, cached, CacheHit, elapsed)
			return &ScanResult{Result: cached, CacheStatus: CacheHit, Duration: elapsed}, nil
		}
		status = CacheMiss
		observability.CacheMisses.Inc()
	}

	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		observability.AnalysisTotal.WithLabelValues(lang, "error").Inc()
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, result)
	}

	elapsed := time.Since(started)
	observability.AnalysisTotal.WithLabelValues(lang, "success").Inc()
	observability.AnalysisLatency.WithLabelValues(lang).Observe(elapsed.Seconds())
	observability.FilesScanned.Inc()
	observability.BugsFound.Add(float64(result.CountBySeverity(models.SeverityError)))
	observability.SecurityIssuesFound.Add(float64(result.SecurityIssueCount()))
	s.collector.ObserveAnalysis(elapsed.Seconds(), false, result)
	s.recordHistory(req, result, status, elapsed)

	return &ScanResult{Result: result, CacheStatus: status, Duration: elapsed}, nil
}

// ClearCache removes cached analyses matching pattern. Only simple
// "prefix*" patterns are supported; an empty pattern clears the analysis
// namespace.
func (s *IncrementalScanner) ClearCache(pattern string) int {
	if s.cache == nil {
		return 0
	}
	prefix := strings.TrimSuffix(pattern, "*")
	if prefix == "" {
		prefix = "analysis:"
	}
	return s.cache.DeletePrefix(prefix)
}

// recordHistory persists the scan outcome without blocking the request.
func (s *IncrementalScanner) recordHistory(req analyzer.Request, result *models.AnalysisResult, status string, elapsed time.Duration) {
	if s.history == nil {
		return
	}

	rec := &models.AnalysisRecord{
		FilePath:      req.Filename,
		Language:      langLabel(req.Language),
		ContentHash:   crypto.ContentHash(req.Code),
		Score:         models.ClampScore(result.Score),
		IssueCount:    len(result.Issues),
		ErrorCount:    result.CountBySeverity(models.SeverityError),
		SecurityCount: result.SecurityIssueCount(),
		CacheStatus:   status,
		DurationMS:    float64(elapsed.Milliseconds()),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
		defer cancel()
		if err := s.history.Record(ctx, rec); err != nil {
			s.logger.Error("failed to record analysis history", "error", err)
		}
	}()
}

// cacheKey builds the incremental scan key: identical content in the same
// language hits the same entry.
func cacheKey(language, code string) string {
	return "analysis:" + langLabel(language) + ":" + crypto.ContentHash(code)
}

func langLabel(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return "unknown"
	}
	return language
}
