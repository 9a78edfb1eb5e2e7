package analyzer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescanai/codescan/internal/llm"
	"github.com/codescanai/codescan/internal/models"
)

// stubProvider counts calls and replays a scripted completion or error.
type stubProvider struct {
	calls      int
	lastPrompt string
	completion llm.Completion
	err        error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return nil, s.err
	}
	return &s.completion, nil
}

func TestRemoteAnalyzerHappyPath(t *testing.T) {
	stub := &stubProvider{completion: llm.Completion{
		Text: `Here you go:
{"score": 72, "issues": [{"line": 4, "severity": "warning", "message": "unused variable", "type": "Code Quality"}],
"metrics": {"complexity": "Low", "maintainability": "Good", "security": "Good", "performance": "Good"},
"summary": "Mostly fine."}`,
		Model:        "test-model",
		InputTokens:  120,
		OutputTokens: 60,
	}}

	ra := NewRemoteAnalyzer(stub, nil, nil)
	result, err := ra.Analyze(context.Background(), Request{Code: "def f():\n    pass", Language: "python"})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, 72, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "unused variable", result.Issues[0].Message)
	assert.Equal(t, "Mostly fine.", result.Summary)
	assert.Greater(t, result.AnalysisTime, 0.0, "measured time replaces whatever the model reported")

	// The submission must be embedded in the prompt verbatim.
	assert.Contains(t, stub.lastPrompt, "def f():")
	assert.Contains(t, stub.lastPrompt, "python")
}

func TestRemoteAnalyzerBlankCodeNeverCallsProvider(t *testing.T) {
	stub := &stubProvider{}
	ra := NewRemoteAnalyzer(stub, nil, nil)

	_, err := ra.Analyze(context.Background(), Request{Code: "   \n\t  "})

	assert.ErrorIs(t, err, models.ErrEmptyCode)
	assert.Equal(t, 0, stub.calls)
}

func TestRemoteAnalyzerAPIErrorIsNotRelayed(t *testing.T) {
	stub := &stubProvider{err: &llm.APIError{
		Provider:   "stub",
		StatusCode: 529,
		Body:       `{"error": "overloaded, retry after 30s"}`,
	}}
	ra := NewRemoteAnalyzer(stub, nil, nil)

	_, err := ra.Analyze(context.Background(), Request{Code: "x = 1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrServiceUnavailable)
	assert.NotContains(t, err.Error(), "529", "upstream status stays in logs")
	assert.NotContains(t, err.Error(), "overloaded", "upstream body stays in logs")
}

func TestRemoteAnalyzerNotConfiguredPassesThrough(t *testing.T) {
	stub := &stubProvider{err: fmt.Errorf("stub: %w", models.ErrNotConfigured)}
	ra := NewRemoteAnalyzer(stub, nil, nil)

	_, err := ra.Analyze(context.Background(), Request{Code: "x"})
	assert.ErrorIs(t, err, models.ErrNotConfigured)
	assert.NotErrorIs(t, err, models.ErrServiceUnavailable)
}

func TestRemoteAnalyzerEmptyCompletion(t *testing.T) {
	stub := &stubProvider{completion: llm.Completion{Text: "   ", Model: "m"}}
	ra := NewRemoteAnalyzer(stub, nil, nil)

	_, err := ra.Analyze(context.Background(), Request{Code: "x"})
	assert.ErrorIs(t, err, models.ErrEmptyCompletion)
}

func TestRemoteAnalyzerMalformedReplies(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no json at all", "I cannot analyze this code."},
		{"missing score", `{"issues": []}`},
		{"missing issues", `{"score": 80}`},
		{"not an object per key", `{"score": "eighty", "issues": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubProvider{completion: llm.Completion{Text: tt.text, Model: "m"}}
			ra := NewRemoteAnalyzer(stub, nil, nil)

			_, err := ra.Analyze(context.Background(), Request{Code: "x"})
			assert.ErrorIs(t, err, models.ErrMalformedResult)
		})
	}
}

func TestRemoteAnalyzerNullIssuesNormalized(t *testing.T) {
	stub := &stubProvider{completion: llm.Completion{
		Text:  `{"score": 95, "issues": null, "summary": "clean"}`,
		Model: "m",
	}}
	ra := NewRemoteAnalyzer(stub, nil, nil)

	result, err := ra.Analyze(context.Background(), Request{Code: "x"})
	require.NoError(t, err)
	assert.NotNil(t, result.Issues)
	assert.Empty(t, result.Issues)
}

func TestRemoteAnalyzerScorePassesThroughUnclamped(t *testing.T) {
	stub := &stubProvider{completion: llm.Completion{
		Text:  `{"score": 130, "issues": []}`,
		Model: "m",
	}}
	ra := NewRemoteAnalyzer(stub, nil, nil)

	result, err := ra.Analyze(context.Background(), Request{Code: "x"})
	require.NoError(t, err)
	assert.Equal(t, 130, result.Score, "adapters never clamp, display paths do")
}
