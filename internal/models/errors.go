package models

import (
	"errors"
	"net/http"
)

// Request validation errors
var (
	ErrEmptyCode      = errors.New("no code provided")
	ErrCodeTooLarge   = errors.New("code exceeds maximum file size")
	ErrInvalidRequest = errors.New("invalid request body")
	ErrBatchTooLarge  = errors.New("too many files in batch")
)

// Remote analysis errors. The sentinel text is the outward-facing message;
// upstream status codes and bodies are logged but never relayed to clients.
var (
	ErrNotConfigured      = errors.New("analysis service not configured")
	ErrServiceUnavailable = errors.New("analysis service unavailable")
	ErrEmptyCompletion    = errors.New("no analysis generated")
	ErrMalformedResult    = errors.New("invalid analysis format")
)

// Lookup errors
var (
	ErrExampleNotFound  = errors.New("example not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrKeyNotFound      = errors.New("api key not found")
)

// Auth and quota errors
var (
	ErrInvalidAPIKey    = errors.New("invalid api key")
	ErrDuplicateKeyName = errors.New("api key name already exists")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// Session state errors
var (
	ErrAnalysisInProgress = errors.New("analysis already in progress")
)

// Feature availability errors
var (
	ErrHistoryUnavailable = errors.New("history is not available without a database")
)

// publicErrors maps each sentinel to the HTTP status it should surface as.
// Order matters only in that the first match wins for wrapped chains.
var publicErrors = []struct {
	err    error
	status int
}{
	{ErrEmptyCode, http.StatusBadRequest},
	{ErrCodeTooLarge, http.StatusBadRequest},
	{ErrInvalidRequest, http.StatusBadRequest},
	{ErrBatchTooLarge, http.StatusBadRequest},
	{ErrInvalidAPIKey, http.StatusUnauthorized},
	{ErrExampleNotFound, http.StatusNotFound},
	{ErrSessionNotFound, http.StatusNotFound},
	{ErrAnalysisNotFound, http.StatusNotFound},
	{ErrKeyNotFound, http.StatusNotFound},
	{ErrDuplicateKeyName, http.StatusConflict},
	{ErrAnalysisInProgress, http.StatusConflict},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrHistoryUnavailable, http.StatusServiceUnavailable},
	{ErrNotConfigured, http.StatusInternalServerError},
	{ErrServiceUnavailable, http.StatusInternalServerError},
	{ErrEmptyCompletion, http.StatusInternalServerError},
	{ErrMalformedResult, http.StatusInternalServerError},
}

// PublicError resolves err to the status code and message a client may see.
// Anything outside the known taxonomy collapses to a generic 500 so internal
// detail never leaks through an error string.
func PublicError(err error) (int, string) {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			return pe.status, pe.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}
