package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects the analysis backend.
type Mode string

const (
	// ModeMock runs the deterministic rule-based analyzer.
	ModeMock Mode = "mock"
	// ModeRemote calls a hosted LLM provider.
	ModeRemote Mode = "remote"
	// ModePlaceholder returns seeded random demo output.
	ModePlaceholder Mode = "placeholder"
)

// Provider names a supported LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

type Config struct {
	// Server config
	Server ServerConfig

	// database config
	Database DatabaseConfig

	// analysis backend config
	Analyzer AnalyzerConfig

	// LLM provider config
	LLM LLMConfig

	// feature flags and limits
	Limits LimitsConfig

	// GitHub API config
	GitHub GitHubConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address     string
	Environment string // development, staging, production
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL puts
// the service in demo mode: no history, anonymous rate limiting.
type DatabaseConfig struct {
	URL string
}

// AnalyzerConfig holds analysis pipeline settings.
type AnalyzerConfig struct {
	Mode       Mode
	Delay      time.Duration // artificial delay for mock and placeholder
	CacheTTL   time.Duration
	SessionTTL time.Duration
}

// LLMConfig holds external LLM provider configuration.
type LLMConfig struct {
	Provider        Provider
	Model           string // empty means the provider default
	AnthropicAPIKey string
	GeminiAPIKey    string
}

// LimitsConfig holds rate limiting and size settings.
type LimitsConfig struct {
	RateLimitPerMinute int
	MaxFileSizeMB      int
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	Token string // optional, raises the API rate limit
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// DemoMode reports whether the service runs without a database.
func (c *Config) DemoMode() bool {
	return c.Database.URL == ""
}

// MaxCodeBytes converts the file size limit to bytes.
func (c *Config) MaxCodeBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB) << 20
}

// LLMKey returns the API key of the configured provider.
func (c *Config) LLMKey() string {
	switch c.LLM.Provider {
	case ProviderGemini:
		return c.LLM.GeminiAPIKey
	default:
		return c.LLM.AnthropicAPIKey
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	// This is useful for local development but not required in production
	// where env vars are typically set by the orchestration platform
	_ = godotenv.Load()

	cfg := &Config{}

	// Load server configuration
	cfg.Server = ServerConfig{
		Address:     getEnvOrDefault("SERVER_ADDRESS", ":8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
	}

	// Load database configuration
	cfg.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}

	// Load analyzer configuration
	delayMS, err := strconv.Atoi(getEnvOrDefault("ANALYSIS_DELAY_MS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_DELAY_MS: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnvOrDefault("CACHE_TTL", "3600"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	sessionTTL, err := strconv.Atoi(getEnvOrDefault("SESSION_TTL_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL_MINUTES: %w", err)
	}

	cfg.Analyzer = AnalyzerConfig{
		Mode:       Mode(getEnvOrDefault("ANALYZER_MODE", string(ModeMock))),
		Delay:      time.Duration(delayMS) * time.Millisecond,
		CacheTTL:   time.Duration(cacheTTL) * time.Second,
		SessionTTL: time.Duration(sessionTTL) * time.Minute,
	}

	// Load LLM configuration
	cfg.LLM = LLMConfig{
		Provider:        Provider(getEnvOrDefault("LLM_PROVIDER", string(ProviderAnthropic))),
		Model:           os.Getenv("LLM_MODEL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
	}

	// Load limits configuration
	ratePerMinute, err := strconv.Atoi(getEnvOrDefault("RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	maxFileMB, err := strconv.Atoi(getEnvOrDefault("MAX_FILE_SIZE_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE_MB: %w", err)
	}

	cfg.Limits = LimitsConfig{
		RateLimitPerMinute: ratePerMinute,
		MaxFileSizeMB:      maxFileMB,
	}

	// Load GitHub configuration
	cfg.GitHub = GitHubConfig{
		Token: os.Getenv("GITHUB_TOKEN"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid,
// so a bad deployment fails at startup instead of on the first request.
func (c *Config) validate() error {
	var errs []error

	// Validate environment is a known value
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	// Validate analyzer mode is a known value
	switch c.Analyzer.Mode {
	case ModeMock, ModeRemote, ModePlaceholder:
	default:
		errs = append(errs, fmt.Errorf("ANALYZER_MODE must be one of: mock, remote, placeholder (got: %s)", c.Analyzer.Mode))
	}

	// Remote mode needs a provider and its key
	if c.Analyzer.Mode == ModeRemote {
		switch c.LLM.Provider {
		case ProviderAnthropic:
			if c.LLM.AnthropicAPIKey == "" {
				errs = append(errs, errors.New("ANTHROPIC_API_KEY is required when ANALYZER_MODE=remote and LLM_PROVIDER=anthropic"))
			}
		case ProviderGemini:
			if c.LLM.GeminiAPIKey == "" {
				errs = append(errs, errors.New("GEMINI_API_KEY is required when ANALYZER_MODE=remote and LLM_PROVIDER=gemini"))
			}
		default:
			errs = append(errs, fmt.Errorf("LLM_PROVIDER must be one of: anthropic, gemini (got: %s)", c.LLM.Provider))
		}
	}

	// Keep the file size limit in a range the server can buffer
	if c.Limits.MaxFileSizeMB < 1 || c.Limits.MaxFileSizeMB > 50 {
		errs = append(errs, errors.New("MAX_FILE_SIZE_MB must be between 1 and 50"))
	}

	if c.Limits.RateLimitPerMinute < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be at least 1"))
	}

	if c.Analyzer.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must not be negative"))
	}

	// Combine all errors
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
