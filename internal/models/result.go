package models

// Severity classifies how urgent an issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities by decreasing urgency (error < warning < info).
// Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

// Complexity is the code-size complexity rating.
type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

// Rating is the quality rating used for maintainability, security and
// performance. Remote analyzers may emit any value from this family;
// values are passed through without validation.
type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
	RatingCritical  Rating = "Critical"
)

// Issue is a single finding inside an analysis result.
// Line is 1-based; 0 means "no specific line". Column and Suggestion are
// optional and omitted from JSON when absent.
type Issue struct {
	Line       int      `json:"line"`
	Column     int      `json:"column,omitempty"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Type       string   `json:"type"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Metrics holds the four qualitative ratings attached to every result.
type Metrics struct {
	Complexity      Complexity `json:"complexity"`
	Maintainability Rating     `json:"maintainability"`
	Security        Rating     `json:"security"`
	Performance     Rating     `json:"performance"`
}

// AnalysisResult is the single payload shape every analyzer produces and
// every consumer reads. Issues keeps discovery order and is never reordered.
// Score is intended to be 0-100 but is not validated on ingest; display and
// aggregation paths clamp with ClampScore.
type AnalysisResult struct {
	Score        int     `json:"score"`
	Issues       []Issue `json:"issues"`
	Metrics      Metrics `json:"metrics"`
	Summary      string  `json:"summary"`
	AnalysisTime float64 `json:"analysisTime"`
}

// IssueTypeSecurity is the category label used by security findings.
const IssueTypeSecurity = "Security"

// ClampScore forces a score into the displayable 0-100 range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Clone returns a deep copy, so cached results can be handed out without
// letting callers mutate the stored copy.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Issues = make([]Issue, len(r.Issues))
	copy(out.Issues, r.Issues)
	return &out
}

// CountBySeverity returns the number of issues with the given severity.
func (r *AnalysisResult) CountBySeverity(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// SecurityIssueCount returns the number of issues categorized as security
// findings.
func (r *AnalysisResult) SecurityIssueCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Type == IssueTypeSecurity {
			n++
		}
	}
	return n
}
