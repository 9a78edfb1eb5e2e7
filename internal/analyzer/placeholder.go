package analyzer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/codescanai/codescan/internal/models"
)

// PlaceholderAnalyzer generates random, content-free results. The numbers
// carry no meaning: this mode exists only for frontend development and
// load testing, must be selected explicitly via configuration, and is
// never used as a fallback when a real analyzer fails.
type PlaceholderAnalyzer struct {
	Delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlaceholderAnalyzer seeds the generator explicitly so tests can pin
// the sequence.
func NewPlaceholderAnalyzer(seed int64, delay time.Duration) *PlaceholderAnalyzer {
	return &PlaceholderAnalyzer{
		Delay: delay,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (p *PlaceholderAnalyzer) Name() string { return "placeholder" }

var placeholderIssues = []models.Issue{
	{Severity: models.SeverityWarning, Type: "Style", Message: "Placeholder finding: inconsistent formatting"},
	{Severity: models.SeverityInfo, Type: "Documentation", Message: "Placeholder finding: missing doc comment"},
	{Severity: models.SeverityError, Type: "Logic", Message: "Placeholder finding: possible off-by-one"},
	{Severity: models.SeverityWarning, Type: "Complexity", Message: "Placeholder finding: function too long"},
}

func (p *PlaceholderAnalyzer) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	started := time.Now()

	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	score := 40 + p.rng.Intn(56)
	count := p.rng.Intn(4)
	issues := make([]models.Issue, 0, count)
	for i := 0; i < count; i++ {
		issue := placeholderIssues[p.rng.Intn(len(placeholderIssues))]
		issue.Line = 1 + p.rng.Intn(40)
		issues = append(issues, issue)
	}
	p.mu.Unlock()

	return &models.AnalysisResult{
		Score:        score,
		Issues:       issues,
		Metrics:      deriveMetrics(req.Code, score, issues),
		Summary:      "Placeholder analysis: scores and findings are randomly generated and carry no meaning.",
		AnalysisTime: time.Since(started).Seconds(),
	}, nil
}
