package analyzer

import (
	"context"

	"github.com/codescanai/codescan/internal/models"
)

// Request describes one piece of source code to analyze.
// Language and Filename are optional hints; analyzers must cope with both
// being empty.
type Request struct {
	Code     string
	Language string
	Filename string
}

// Analyzer produces an AnalysisResult for a piece of source code.
// Implementations must populate every non-optional field of the result and
// must respect ctx cancellation on anything that blocks.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error)
	Name() string
}
