package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the analysis pipeline. Registered on the default
// registry so promhttp exposes them without extra wiring.
var (
	AnalysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_analysis_total",
		Help: "Total code analyses performed",
	}, []string{"language", "status"})

	AnalysisLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codescan_analysis_latency_seconds",
		Help:    "End to end analysis latency including cache lookups",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"language"})

	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codescan_llm_latency_seconds",
		Help:    "Latency of one model round trip",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"model"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_cache_hits_total",
		Help: "Analyses served from the incremental scan cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_cache_misses_total",
		Help: "Analyses that had to run because no cached result existed",
	})

	TokensUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_tokens_total",
		Help: "Model tokens consumed, split by direction",
	}, []string{"model", "type"})

	CostTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_cost_total",
		Help: "Estimated spend in USD per external service",
	}, []string{"service"})

	FilesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_files_scanned_total",
		Help: "Files submitted for analysis",
	})

	BugsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_bugs_found_total",
		Help: "Error severity findings across all analyses",
	})

	SecurityIssuesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_security_issues_found_total",
		Help: "Security findings across all analyses",
	})
)
