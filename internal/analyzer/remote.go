package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codescanai/codescan/internal/llm"
	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/observability"
)

// RemoteAnalyzer adapts a chat-completion provider into an Analyzer.
// One analysis is exactly one provider round trip; there is no retry, no
// result cache and no fallback to another analyzer on failure.
type RemoteAnalyzer struct {
	provider  llm.Provider
	collector *observability.Collector
	logger    *slog.Logger
}

func NewRemoteAnalyzer(provider llm.Provider, collector *observability.Collector, logger *slog.Logger) *RemoteAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteAnalyzer{
		provider:  provider,
		collector: collector,
		logger:    logger,
	}
}

func (ra *RemoteAnalyzer) Name() string { return "remote" }

// Analyze validates input, runs the single round trip and shapes the reply
// into an AnalysisResult. Upstream failure detail is logged here and never
// surfaces past the error taxonomy.
func (ra *RemoteAnalyzer) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	// Blank input never reaches the provider.
	if strings.TrimSpace(req.Code) == "" {
		return nil, models.ErrEmptyCode
	}

	started := time.Now()
	prompt := buildPrompt(req)

	completion, err := ra.provider.Complete(ctx, prompt)
	elapsed := time.Since(started)
	if err != nil {
		return nil, ra.classify(err)
	}

	observability.LLMLatency.WithLabelValues(completion.Model).Observe(elapsed.Seconds())
	observability.TokensUsed.WithLabelValues(completion.Model, "input").Add(float64(completion.InputTokens))
	observability.TokensUsed.WithLabelValues(completion.Model, "output").Add(float64(completion.OutputTokens))
	ra.collector.ObserveTokens(ra.provider.Name(), completion.InputTokens, completion.OutputTokens)

	if strings.TrimSpace(completion.Text) == "" {
		return nil, models.ErrEmptyCompletion
	}

	result, err := parseResult(completion.Text)
	if err != nil {
		ra.logger.Error("unparseable model reply",
			"provider", ra.provider.Name(),
			"model", completion.Model,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResult, err)
	}

	result.AnalysisTime = time.Since(started).Seconds()
	return result, nil
}

// classify maps provider failures onto the public error taxonomy, logging
// the raw detail that must not reach clients.
func (ra *RemoteAnalyzer) classify(err error) error {
	if errors.Is(err, models.ErrNotConfigured) {
		return err
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		ra.logger.Error("analysis provider returned an error",
			"provider", apiErr.Provider,
			"status", apiErr.StatusCode,
			"body", apiErr.Body,
		)
	} else {
		ra.logger.Error("analysis provider call failed",
			"provider", ra.provider.Name(),
			"error", err,
		)
	}
	return fmt.Errorf("%w: %s", models.ErrServiceUnavailable, ra.provider.Name())
}

// parseResult extracts the JSON object from the reply and checks the two
// required keys. Beyond that presence check, fields pass through exactly
// as the model produced them.
func parseResult(reply string) (*models.AnalysisResult, error) {
	payload, ok := ExtractJSONObject(reply)
	if !ok {
		return nil, errors.New("no JSON object in reply")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, ok := probe["score"]; !ok {
		return nil, errors.New(`missing "score"`)
	}
	if _, ok := probe["issues"]; !ok {
		return nil, errors.New(`missing "issues"`)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if result.Issues == nil {
		result.Issues = []models.Issue{}
	}
	return &result, nil
}
