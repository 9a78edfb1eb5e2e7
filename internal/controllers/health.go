package controllers

import (
	"net/http"
	"time"

	"github.com/codescanai/codescan/internal/models"
)

// HealthController serves liveness, readiness and component health.
type HealthController struct {
	db            *models.Database // nil in demo mode
	analyzerName  string
	llmConfigured bool
	version       string
	startedAt     time.Time
}

func NewHealthController(db *models.Database, analyzerName string, llmConfigured bool, version string) *HealthController {
	return &HealthController{
		db:            db,
		analyzerName:  analyzerName,
		llmConfigured: llmConfigured,
		version:       version,
		startedAt:     time.Now(),
	}
}

// GetHealth is the cheap top-level check used by load balancers.
func (c *HealthController) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "codescan-api",
		"version": c.version,
	})
}

// GetHealthDetailed reports each component individually. The endpoint
// stays 200 even with degraded components so dashboards can read the body.
func (c *HealthController) GetHealthDetailed(w http.ResponseWriter, r *http.Request) {
	components := map[string]any{
		"analyzer": c.analyzerName,
		"cache":    "in-memory",
	}

	if c.llmConfigured {
		components["llm"] = "configured"
	} else {
		components["llm"] = "not configured"
	}

	status := "healthy"
	switch {
	case c.db == nil:
		components["database"] = "not configured"
	case c.db.Health(r.Context()) != nil:
		components["database"] = "unreachable"
		status = "degraded"
	default:
		components["database"] = "connected"
		stats := c.db.Stats()
		components["database_pool"] = map[string]any{
			"total_conns": stats.TotalConns(),
			"idle_conns":  stats.IdleConns(),
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"service":        "codescan-api",
		"version":        c.version,
		"uptime_seconds": int64(time.Since(c.startedAt).Seconds()),
		"components":     components,
	})
}

// GetReady reports 503 until dependencies answer. Without a database the
// service is ready as soon as it listens.
func (c *HealthController) GetReady(w http.ResponseWriter, r *http.Request) {
	if c.db != nil {
		if err := c.db.Health(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// GetLive answers as long as the process runs.
func (c *HealthController) GetLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}
