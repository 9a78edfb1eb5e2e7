package controllers

import (
	"net/http"
	"time"
)

// ServiceInfo is the static description of the running instance, built
// once from config at startup.
type ServiceInfo struct {
	Version      string
	Environment  string
	AnalyzerMode string
	Provider     string
	Model        string
	DemoMode     bool
	CacheTTL     time.Duration
	RateLimit    int
}

// MetaController serves the root banner and the service info document.
type MetaController struct {
	info ServiceInfo
}

func NewMetaController(info ServiceInfo) *MetaController {
	return &MetaController{info: info}
}

// GetRoot points clients at the interesting endpoints.
func (c *MetaController) GetRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "codescan-api",
		"version": c.info.Version,
		"info":    "/api/v1/info",
		"health":  "/health",
		"metrics": "/metrics",
	})
}

// GetInfo describes how this instance is configured. Secrets never appear
// here; provider and model names are enough for a client to know what it
// is talking to.
func (c *MetaController) GetInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"service":               "codescan-api",
		"version":               c.info.Version,
		"environment":           c.info.Environment,
		"analyzer_mode":         c.info.AnalyzerMode,
		"demo_mode":             c.info.DemoMode,
		"cache_ttl_seconds":     int64(c.info.CacheTTL.Seconds()),
		"rate_limit_per_minute": c.info.RateLimit,
	}
	if c.info.Provider != "" {
		info["llm_provider"] = c.info.Provider
		info["llm_model"] = c.info.Model
	}
	respondJSON(w, http.StatusOK, info)
}
