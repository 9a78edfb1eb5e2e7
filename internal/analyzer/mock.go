package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/codescanai/codescan/internal/models"
)

// BaseScore is the score a submission starts from before rule penalties.
const BaseScore = 85

// MockAnalyzer is the deterministic rule-based analyzer used for demos and
// tests. Same input, same output, every time. It simulates analysis latency
// with a fixed configurable delay.
type MockAnalyzer struct {
	Delay time.Duration

	rules []Rule
}

func NewMockAnalyzer(delay time.Duration) *MockAnalyzer {
	return &MockAnalyzer{
		Delay: delay,
		rules: defaultRules(),
	}
}

func (m *MockAnalyzer) Name() string { return "mock" }

// Analyze runs every rule in registration order against the code.
// Matching rules append their issue and subtract their penalty from the
// base score; the score floors at 0.
func (m *MockAnalyzer) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	started := time.Now()

	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	score := BaseScore
	issues := []models.Issue{}

	for _, rule := range m.rules {
		if !rule.Matches(req.Code) {
			continue
		}
		issues = append(issues, models.Issue{
			Line:       matchLine(req.Code, rule.Needle),
			Severity:   rule.Severity,
			Message:    rule.Message,
			Type:       rule.Type,
			Suggestion: rule.Suggestion,
		})
		score -= rule.Penalty
	}

	if score < 0 {
		score = 0
	}

	return &models.AnalysisResult{
		Score:        score,
		Issues:       issues,
		Metrics:      deriveMetrics(req.Code, score, issues),
		Summary:      summarize(issues),
		AnalysisTime: time.Since(started).Seconds(),
	}, nil
}

// summarize builds the deterministic result summary from the issue mix.
func summarize(issues []models.Issue) string {
	if len(issues) == 0 {
		return "No issues detected. The code follows good practices and is ready for review."
	}

	errors, warnings, infos := 0, 0, 0
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityError:
			errors++
		case models.SeverityWarning:
			warnings++
		default:
			infos++
		}
	}

	parts := ""
	if errors > 0 {
		parts += fmt.Sprintf("%d error(s)", errors)
	}
	if warnings > 0 {
		if parts != "" {
			parts += ", "
		}
		parts += fmt.Sprintf("%d warning(s)", warnings)
	}
	if infos > 0 {
		if parts != "" {
			parts += ", "
		}
		parts += fmt.Sprintf("%d informational", infos)
	}

	return fmt.Sprintf("Found %d issue(s): %s. Address the findings above before shipping.", len(issues), parts)
}
