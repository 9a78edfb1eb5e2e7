package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codescanai/codescan/internal/analyzer"
	"github.com/codescanai/codescan/internal/config"
	"github.com/codescanai/codescan/internal/controllers"
	"github.com/codescanai/codescan/internal/examples"
	"github.com/codescanai/codescan/internal/llm"
	"github.com/codescanai/codescan/internal/middleware"
	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/observability"
	"github.com/codescanai/codescan/internal/services"
	"github.com/codescanai/codescan/internal/session"
	"github.com/codescanai/codescan/migrations"
)

const (
	version = "1.0.0"

	// scanTimeout bounds one synchronous analysis request.
	scanTimeout = 60 * time.Second
	// shutdownTimeout is how long in-flight requests get to finish.
	shutdownTimeout = 10 * time.Second
	// visitorTTL is how long idle rate-limit buckets are kept.
	visitorTTL = 10 * time.Minute
)

func main() {
	cfg := config.MustLoad()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup the Database ---------------
	// No DATABASE_URL puts the service in demo mode: analysis works,
	// history and API keys are off, rate limiting falls back to per-IP.
	var db *models.Database
	if !cfg.DemoMode() {
		logger.Info("connecting to database")
		if err := models.RunMigrations(cfg.Database.URL, migrations.FS); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}

		var err error
		db, err = models.NewDatabase(ctx, models.DefaultDatabaseConfig(cfg.Database.URL))
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set, running in demo mode")
	}

	// Setup Services ---------------
	collector := observability.NewCollector()

	backend, err := buildAnalyzer(cfg, collector, logger)
	if err != nil {
		return err
	}
	logger.Info("analyzer ready", "mode", string(cfg.Analyzer.Mode), "name", backend.Name())

	var cache *services.TTLCache
	if cfg.Analyzer.CacheTTL > 0 {
		cache = services.NewTTLCache(cfg.Analyzer.CacheTTL)
		defer cache.Stop()
	}

	var historySvc *models.HistoryService
	var historyStore services.HistoryStore
	var keyVerifier middleware.KeyVerifier
	if db != nil {
		historySvc = models.NewHistoryService(db)
		historyStore = historySvc
		keyVerifier = models.NewAPIKeyService(db)
	}

	scanner := services.NewIncrementalScanner(backend, cache, historyStore, collector, scanTimeout, logger)

	limiter := services.NewRateLimiter(visitorTTL)
	defer limiter.Stop()

	gallery, err := examples.Load()
	if err != nil {
		return fmt.Errorf("example gallery: %w", err)
	}

	sessions := session.NewManager(scanner, cfg.Analyzer.SessionTTL, logger)
	defer sessions.Stop()

	githubSvc := services.NewGitHubService(cfg.GitHub.Token)

	// Setup Controllers ---------------
	analyzeCtrl := controllers.NewAnalyzeController(scanner, githubSvc, historySvc, cfg.MaxCodeBytes(), logger)
	healthCtrl := controllers.NewHealthController(db, backend.Name(), cfg.LLMKey() != "", version)
	metricsCtrl := controllers.NewMetricsController(collector)
	examplesCtrl := controllers.NewExamplesController(gallery)
	sessionCtrl := controllers.NewSessionController(sessions, gallery)
	metaCtrl := controllers.NewMetaController(controllers.ServiceInfo{
		Version:      version,
		Environment:  cfg.Server.Environment,
		AnalyzerMode: string(cfg.Analyzer.Mode),
		Provider:     providerLabel(cfg),
		Model:        modelLabel(cfg),
		DemoMode:     cfg.DemoMode(),
		CacheTTL:     cfg.Analyzer.CacheTTL,
		RateLimit:    cfg.Limits.RateLimitPerMinute,
	})

	authMw := middleware.NewAPIKeyMiddleware(keyVerifier, limiter, cfg.Limits.RateLimitPerMinute)

	// Setup router and routes
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	// ---- Public Routes ----
	r.Group(func(r chi.Router) {
		r.Get("/", metaCtrl.GetRoot)
		r.Get("/health", healthCtrl.GetHealth)
		r.Get("/health/detailed", healthCtrl.GetHealthDetailed)
		r.Get("/ready", healthCtrl.GetReady)
		r.Get("/live", healthCtrl.GetLive)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())

		r.Get("/api/v1/info", metaCtrl.GetInfo)
		r.Get("/api/v1/examples", examplesCtrl.List)
		r.Get("/api/v1/examples/{id}", examplesCtrl.Get)
	})

	// ---- Authenticated Routes ----
	r.Group(func(r chi.Router) {
		r.Use(authMw.Authenticate)

		r.Post("/analyze", analyzeCtrl.PostAnalyze)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/analyze", analyzeCtrl.PostAnalyze)
			r.Post("/analyze/file", analyzeCtrl.PostAnalyzeFile)
			r.Post("/analyze/batch", analyzeCtrl.PostAnalyzeBatch)
			r.Post("/analyze/github", analyzeCtrl.PostAnalyzeGitHub)
			r.Get("/analyze/history/*", analyzeCtrl.GetHistory)
			r.Get("/analyze/trends", analyzeCtrl.GetTrends)
			r.Delete("/analyze/cache", analyzeCtrl.DeleteCache)

			r.Get("/metrics/current", metricsCtrl.GetCurrent)
			r.Get("/metrics/latency/history", metricsCtrl.GetLatencyHistory)

			r.Post("/sessions", sessionCtrl.PostCreate)
			r.Get("/sessions/{id}", sessionCtrl.GetState)
			r.Post("/sessions/{id}/events", sessionCtrl.PostEvent)
		})
	})

	// Start the Server
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildAnalyzer picks the backend for the configured mode.
func buildAnalyzer(cfg *config.Config, collector *observability.Collector, logger *slog.Logger) (analyzer.Analyzer, error) {
	switch cfg.Analyzer.Mode {
	case config.ModeRemote:
		provider, err := buildProvider(cfg)
		if err != nil {
			return nil, err
		}
		return analyzer.NewRemoteAnalyzer(provider, collector, logger), nil
	case config.ModePlaceholder:
		return analyzer.NewPlaceholderAnalyzer(time.Now().UnixNano(), cfg.Analyzer.Delay), nil
	default:
		return analyzer.NewMockAnalyzer(cfg.Analyzer.Delay), nil
	}
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		return llm.NewAnthropicClient(cfg.LLM.AnthropicAPIKey, cfg.LLM.Model), nil
	case config.ProviderGemini:
		return llm.NewGeminiClient(cfg.LLM.GeminiAPIKey, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

func providerLabel(cfg *config.Config) string {
	if cfg.Analyzer.Mode != config.ModeRemote {
		return ""
	}
	return string(cfg.LLM.Provider)
}

func modelLabel(cfg *config.Config) string {
	if cfg.Analyzer.Mode != config.ModeRemote {
		return ""
	}
	if cfg.LLM.Model != "" {
		return cfg.LLM.Model
	}
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return llm.DefaultGeminiModel
	default:
		return llm.DefaultAnthropicModel
	}
}
