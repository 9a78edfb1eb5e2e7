package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative", -25, 0},
		{"zero", 0, 0},
		{"in range", 60, 60},
		{"upper bound", 100, 100},
		{"above range", 140, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampScore(tt.in))
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityError.Rank(), SeverityWarning.Rank())
	assert.Less(t, SeverityWarning.Rank(), SeverityInfo.Rank())
	assert.Greater(t, Severity("bogus").Rank(), SeverityInfo.Rank())
}

func TestAnalysisResultJSONShape(t *testing.T) {
	result := AnalysisResult{
		Score: 60,
		Issues: []Issue{
			{Line: 1, Severity: SeverityError, Message: "SQL injection vulnerability detected", Type: "Security"},
			{Line: 0, Severity: SeverityWarning, Message: "console.log statement left in code", Type: "Best Practice", Suggestion: "Remove debug statements"},
		},
		Metrics: Metrics{
			Complexity:      ComplexityLow,
			Maintainability: RatingFair,
			Security:        RatingPoor,
			Performance:     RatingGood,
		},
		Summary:      "Found 2 issue(s)",
		AnalysisTime: 0.5,
	}

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	// Top-level keys use the exact wire names consumers depend on.
	for _, key := range []string{"score", "issues", "metrics", "summary", "analysisTime"} {
		assert.Contains(t, doc, key)
	}

	issues := doc["issues"].([]any)
	require.Len(t, issues, 2)

	first := issues[0].(map[string]any)
	assert.Equal(t, float64(1), first["line"])
	assert.NotContains(t, first, "column", "zero column must be omitted")
	assert.NotContains(t, first, "suggestion", "empty suggestion must be omitted")

	second := issues[1].(map[string]any)
	assert.Equal(t, float64(0), second["line"], "line 0 is a real sentinel, never omitted")
	assert.Equal(t, "Remove debug statements", second["suggestion"])

	metrics := doc["metrics"].(map[string]any)
	assert.Equal(t, "Low", metrics["complexity"])
	assert.Equal(t, "Poor", metrics["security"])
}

func TestAnalysisResultEmptyIssuesMarshalsAsArray(t *testing.T) {
	result := AnalysisResult{Score: 85, Issues: []Issue{}}

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"issues":[]`)
}

func TestClone(t *testing.T) {
	original := &AnalysisResult{
		Score:  50,
		Issues: []Issue{{Line: 3, Severity: SeverityError, Message: "x", Type: "Security"}},
	}

	clone := original.Clone()
	require.NotNil(t, clone)

	clone.Score = 99
	clone.Issues[0].Line = 42

	assert.Equal(t, 50, original.Score)
	assert.Equal(t, 3, original.Issues[0].Line, "clone must not share the issues slice")
}

func TestCloneNil(t *testing.T) {
	var r *AnalysisResult
	assert.Nil(t, r.Clone())
}

func TestIssueCounters(t *testing.T) {
	r := &AnalysisResult{Issues: []Issue{
		{Severity: SeverityError, Type: "Security"},
		{Severity: SeverityError, Type: "Security"},
		{Severity: SeverityWarning, Type: "Best Practice"},
	}}

	assert.Equal(t, 2, r.CountBySeverity(SeverityError))
	assert.Equal(t, 1, r.CountBySeverity(SeverityWarning))
	assert.Equal(t, 0, r.CountBySeverity(SeverityInfo))
	assert.Equal(t, 2, r.SecurityIssueCount())
}
