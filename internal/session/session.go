package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/codescanai/codescan/internal/models"
)

// Phase is the single rendering state a session is in. Exactly one phase
// holds at a time; consumers render result, error and progress surfaces
// from it instead of juggling independent flags.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseAnalyzing Phase = "analyzing"
	PhaseResult    Phase = "result"
	PhaseError     Phase = "error"
)

// State is the full presentation state of one editing session.
// Seq is the fencing counter: it increments on every accepted
// StartAnalysis, and completions carrying an older Seq are discarded so a
// slow analysis can never overwrite a newer one.
type State struct {
	Phase           Phase                  `json:"phase"`
	Code            string                 `json:"code"`
	Language        string                 `json:"language"`
	SelectedExample string                 `json:"selectedExample,omitempty"`
	Result          *models.AnalysisResult `json:"result,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Seq             uint64                 `json:"seq"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// Event is a session state transition request. The concrete types below
// are the only implementations.
type Event interface {
	isEvent()
}

// SelectExample loads a gallery snippet into the editor, discarding any
// previous result or error.
type SelectExample struct {
	ID       string
	Code     string
	Language string
}

// EditCode replaces the editor content. The session detaches from any
// selected example and stale results are cleared.
type EditCode struct {
	Code string
}

// StartAnalysis requests an analysis of the current code.
type StartAnalysis struct{}

// CompleteAnalysis delivers a finished result for the run identified by
// Seq.
type CompleteAnalysis struct {
	Seq    uint64
	Result *models.AnalysisResult
}

// FailAnalysis delivers a failure for the run identified by Seq.
type FailAnalysis struct {
	Seq     uint64
	Message string
}

func (SelectExample) isEvent()    {}
func (EditCode) isEvent()         {}
func (StartAnalysis) isEvent()    {}
func (CompleteAnalysis) isEvent() {}
func (FailAnalysis) isEvent()     {}

// Reduce applies ev to s and returns the next state. It is pure: no IO, no
// clock reads besides the UpdatedAt stamp, no mutation of s.
//
// Rejections return the unchanged state plus an error. Stale completions
// (wrong Seq, or no run in flight) are not errors; they return the state
// unchanged so late goroutines die silently instead of corrupting newer
// state.
func Reduce(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case SelectExample:
		if s.Phase == PhaseAnalyzing {
			return s, models.ErrAnalysisInProgress
		}
		s.Code = ev.Code
		s.Language = ev.Language
		s.SelectedExample = ev.ID
		s.Result = nil
		s.Error = ""
		s.Phase = PhaseIdle

	case EditCode:
		if s.Phase == PhaseAnalyzing {
			return s, models.ErrAnalysisInProgress
		}
		s.Code = ev.Code
		s.SelectedExample = ""
		s.Result = nil
		s.Error = ""
		s.Phase = PhaseIdle

	case StartAnalysis:
		if s.Phase == PhaseAnalyzing {
			return s, models.ErrAnalysisInProgress
		}
		if strings.TrimSpace(s.Code) == "" {
			return s, models.ErrEmptyCode
		}
		s.Seq++
		s.Phase = PhaseAnalyzing
		s.Result = nil
		s.Error = ""

	case CompleteAnalysis:
		if s.Phase != PhaseAnalyzing || ev.Seq != s.Seq {
			return s, nil
		}
		s.Phase = PhaseResult
		s.Result = ev.Result

	case FailAnalysis:
		if s.Phase != PhaseAnalyzing || ev.Seq != s.Seq {
			return s, nil
		}
		s.Phase = PhaseError
		s.Error = ev.Message

	default:
		return s, fmt.Errorf("unknown session event %T", ev)
	}

	s.UpdatedAt = time.Now()
	return s, nil
}
