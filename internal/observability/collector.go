package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/codescanai/codescan/internal/models"
)

// Token cost estimate in USD per million tokens.
const (
	inputCostPerMTok  = 15.0
	outputCostPerMTok = 75.0
)

const (
	// maxSamples bounds the latency sample set used for percentiles.
	maxSamples = 1000
	// maxHourlySamples bounds per-bucket samples in the hourly ring.
	maxHourlySamples = 200
	// historyHours is how far back the latency history ring reaches.
	historyHours = 24
)

// Collector keeps in-process aggregates for the metrics summary endpoint.
// Prometheus counters cover scrape-based monitoring; this answers the
// dashboard's "right now" questions (percentiles, hit rate, cost per
// analysis) without a metrics backend.
type Collector struct {
	mu sync.Mutex

	startedAt time.Time
	now       func() time.Time // injectable for tests

	samples []float64

	analyses       int64
	cacheHits      int64
	cacheMisses    int64
	bugsFound      int64
	securityIssues int64

	tokensIn  int64
	tokensOut int64
	costUSD   float64

	hourly [historyHours]hourBucket
}

type hourBucket struct {
	hour    time.Time
	count   int
	samples []float64
}

// MetricsSummary is the payload of GET /api/v1/metrics/current.
type MetricsSummary struct {
	AnalysisLatencyP50  float64 `json:"analysis_latency_p50"`
	AnalysisLatencyP95  float64 `json:"analysis_latency_p95"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	CostPerAnalysis     float64 `json:"cost_per_analysis"`
	FilesScanned        int64   `json:"files_scanned"`
	BugsCaught          int64   `json:"bugs_caught"`
	SecurityIssuesFound int64   `json:"security_issues_found"`
	TokensIn            int64   `json:"tokens_in"`
	TokensOut           int64   `json:"tokens_out"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// LatencyPoint is one hourly aggregate in the latency history.
type LatencyPoint struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
	P50   float64   `json:"p50"`
	P95   float64   `json:"p95"`
}

func NewCollector() *Collector {
	return &Collector{
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// ObserveAnalysis records one finished analysis: its end to end latency,
// whether the cache served it, and the finding counts from the result.
func (c *Collector) ObserveAnalysis(latencySeconds float64, cacheHit bool, result *models.AnalysisResult) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.analyses++
	if cacheHit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
	if result != nil {
		c.bugsFound += int64(result.CountBySeverity(models.SeverityError))
		c.securityIssues += int64(result.SecurityIssueCount())
	}

	c.samples = append(c.samples, latencySeconds)
	if len(c.samples) > maxSamples {
		c.samples = c.samples[len(c.samples)-maxSamples:]
	}

	c.observeHourly(latencySeconds)
}

// ObserveTokens records model token usage for service and the estimated
// spend, both in-process and on the Prometheus cost counter.
func (c *Collector) ObserveTokens(service string, inputTokens, outputTokens int) {
	cost := float64(inputTokens)/1e6*inputCostPerMTok +
		float64(outputTokens)/1e6*outputCostPerMTok
	CostTotal.WithLabelValues(service).Add(cost)

	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokensIn += int64(inputTokens)
	c.tokensOut += int64(outputTokens)
	c.costUSD += cost
}

// Summary snapshots the current aggregates.
func (c *Collector) Summary() MetricsSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := make([]float64, len(c.samples))
	copy(sorted, c.samples)
	sort.Float64s(sorted)

	s := MetricsSummary{
		AnalysisLatencyP50:  percentile(sorted, 0.50),
		AnalysisLatencyP95:  percentile(sorted, 0.95),
		FilesScanned:        c.analyses,
		BugsCaught:          c.bugsFound,
		SecurityIssuesFound: c.securityIssues,
		TokensIn:            c.tokensIn,
		TokensOut:           c.tokensOut,
		UptimeSeconds:       c.now().Sub(c.startedAt).Seconds(),
	}
	if total := c.cacheHits + c.cacheMisses; total > 0 {
		s.CacheHitRate = float64(c.cacheHits) / float64(total)
	}
	if c.analyses > 0 {
		s.CostPerAnalysis = c.costUSD / float64(c.analyses)
	}
	return s
}

// LatencyHistory returns up to hours of hourly aggregates, oldest first.
// Empty hours are skipped.
func (c *Collector) LatencyHistory(hours int) []LatencyPoint {
	if hours <= 0 || hours > historyHours {
		hours = historyHours
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Truncate(time.Hour).Add(-time.Duration(hours-1) * time.Hour)
	points := make([]LatencyPoint, 0, hours)
	for i := 0; i < historyHours; i++ {
		b := c.hourly[i]
		if b.count == 0 || b.hour.Before(cutoff) {
			continue
		}
		sorted := make([]float64, len(b.samples))
		copy(sorted, b.samples)
		sort.Float64s(sorted)
		points = append(points, LatencyPoint{
			Hour:  b.hour,
			Count: b.count,
			P50:   percentile(sorted, 0.50),
			P95:   percentile(sorted, 0.95),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Hour.Before(points[j].Hour) })
	return points
}

// observeHourly files the sample into the ring bucket for the current hour.
// Caller holds c.mu.
func (c *Collector) observeHourly(latencySeconds float64) {
	hour := c.now().Truncate(time.Hour)
	idx := int(hour.Unix()/3600) % historyHours
	b := &c.hourly[idx]
	if !b.hour.Equal(hour) {
		// The slot belonged to an hour a full ring ago; recycle it.
		b.hour = hour
		b.count = 0
		b.samples = b.samples[:0]
	}
	b.count++
	if len(b.samples) < maxHourlySamples {
		b.samples = append(b.samples, latencySeconds)
	}
}

// percentile reads the p-th percentile from an already sorted sample set
// using nearest-rank. Returns 0 for an empty set.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
