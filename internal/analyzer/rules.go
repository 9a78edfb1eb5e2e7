package analyzer

import (
	"strings"

	"github.com/codescanai/codescan/internal/models"
)

// Rule is one deterministic check the mock analyzer runs against submitted
// code. Rules are additive: every matching rule contributes its issue and
// its score penalty, independent of the others.
type Rule struct {
	ID         string
	Type       string
	Severity   models.Severity
	Message    string
	Suggestion string
	Penalty    int

	// Needle locates the line reported for the issue: the first line
	// containing it, 1-based, or 0 when it appears on no line.
	Needle string

	// Matches decides whether the rule fires for the given code.
	Matches func(code string) bool
}

// defaultRules returns the built-in rule set in evaluation order.
// Order is part of the contract: issues appear in the result in exactly
// this order.
func defaultRules() []Rule {
	return []Rule{
		{
			ID:         "sql-injection",
			Type:       models.IssueTypeSecurity,
			Severity:   models.SeverityError,
			Message:    "SQL injection vulnerability detected",
			Suggestion: "Use parameterized queries instead of string concatenation",
			Penalty:    25,
			Needle:     "SELECT",
			Matches: func(code string) bool {
				return strings.Contains(code, "SELECT") && strings.Contains(code, "+")
			},
		},
		{
			ID:         "eval-usage",
			Type:       models.IssueTypeSecurity,
			Severity:   models.SeverityError,
			Message:    "Use of eval() function is dangerous",
			Suggestion: "Avoid eval(); parse input explicitly or use a safe alternative",
			Penalty:    20,
			Needle:     "eval(",
			Matches: func(code string) bool {
				return strings.Contains(code, "eval(")
			},
		},
		{
			ID:         "console-log",
			Type:       "Best Practice",
			Severity:   models.SeverityWarning,
			Message:    "console.log statement left in code",
			Suggestion: "Remove console.log or replace it with a proper logger",
			Penalty:    5,
			Needle:     "console.log",
			Matches: func(code string) bool {
				return strings.Contains(code, "console.log")
			},
		},
	}
}

// matchLine returns the 1-based number of the first line containing needle,
// or 0 when no line contains it.
func matchLine(code, needle string) int {
	for i, line := range strings.Split(code, "\n") {
		if strings.Contains(line, needle) {
			return i + 1
		}
	}
	return 0
}

// deriveMetrics computes the qualitative ratings from code size, the final
// score and the collected issues. Thresholds are fixed:
// complexity by raw length (>500 High, >200 Medium), maintainability by
// score (>70 Good, >50 Fair), security Poor as soon as one security issue
// exists, performance always Good.
func deriveMetrics(code string, score int, issues []models.Issue) models.Metrics {
	m := models.Metrics{
		Complexity:      models.ComplexityLow,
		Maintainability: models.RatingPoor,
		Security:        models.RatingGood,
		Performance:     models.RatingGood,
	}

	switch {
	case len(code) > 500:
		m.Complexity = models.ComplexityHigh
	case len(code) > 200:
		m.Complexity = models.ComplexityMedium
	}

	switch {
	case score > 70:
		m.Maintainability = models.RatingGood
	case score > 50:
		m.Maintainability = models.RatingFair
	}

	for _, issue := range issues {
		if issue.Type == models.IssueTypeSecurity {
			m.Security = models.RatingPoor
			break
		}
	}

	return m
}
