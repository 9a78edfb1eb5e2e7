package controllers

import (
	"net/http"
	"strconv"

	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/observability"
)

// MetricsController exposes the in-process metrics snapshots consumed by
// the dashboard. Prometheus scraping lives on /metrics separately.
type MetricsController struct {
	collector *observability.Collector
}

func NewMetricsController(collector *observability.Collector) *MetricsController {
	return &MetricsController{collector: collector}
}

// GetCurrent returns the rolling summary: latency percentiles, cache hit
// rate, cost per analysis and counters.
func (c *MetricsController) GetCurrent(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, c.collector.Summary())
}

// GetLatencyHistory returns hourly latency buckets, newest last.
// ?hours caps the window (default and maximum 24).
func (c *MetricsController) GetLatencyHistory(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, models.ErrInvalidRequest)
			return
		}
		hours = parsed
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"hours":   hours,
		"history": c.collector.LatencyHistory(hours),
	})
}
