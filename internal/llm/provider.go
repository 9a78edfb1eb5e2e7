package llm

import (
	"context"
	"fmt"
	"time"
)

// Completion is a single model reply plus the token accounting the
// provider reported for it.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider is a chat-completion backend. Complete performs exactly one
// round trip: no retries, no caching, no streaming.
type Provider interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	Name() string
}

// APIError is a non-success reply from a provider. Callers log the body for
// diagnosis; the client-facing error never includes it.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d)", e.Provider, e.StatusCode)
}

const (
	// defaultTimeout bounds one provider round trip.
	defaultTimeout = 30 * time.Second

	// maxCompletionTokens caps the reply size. Analysis JSON for a single
	// file fits comfortably under this.
	maxCompletionTokens = 2000

	// maxErrorBody bounds how much of an upstream failure body gets logged.
	maxErrorBody = 4096
)
