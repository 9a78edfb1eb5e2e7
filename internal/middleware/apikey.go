package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/services"
)

// KeyVerifier resolves a raw API key to its record.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, raw string) (*models.APIKey, error)
}

// APIKeyMiddleware authenticates requests and enforces per-caller rate
// limits. With no verifier configured (no database) the server runs in
// demo mode: requests stay anonymous and are limited per client IP at the
// default rate.
type APIKeyMiddleware struct {
	keys             KeyVerifier // nil enables demo mode
	limiter          *services.RateLimiter
	defaultPerMinute int
}

func NewAPIKeyMiddleware(keys KeyVerifier, limiter *services.RateLimiter, defaultPerMinute int) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		keys:             keys,
		limiter:          limiter,
		defaultPerMinute: defaultPerMinute,
	}
}

type ctxKey int

const apiKeyContextKey ctxKey = 0

// CurrentKey returns the authenticated key for the request, or nil for
// anonymous demo-mode requests.
func CurrentKey(r *http.Request) *models.APIKey {
	key, _ := r.Context().Value(apiKeyContextKey).(*models.APIKey)
	return key
}

// Authenticate checks the key, applies the caller's rate limit and stores
// the key in the request context for handlers.
func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keys == nil {
			if !m.allow("ip:"+clientIP(r), m.defaultPerMinute, w) {
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		raw := extractKey(r)
		if raw == "" {
			writeAuthError(w, models.ErrInvalidAPIKey)
			return
		}

		key, err := m.keys.VerifyKey(r.Context(), raw)
		if err != nil {
			writeAuthError(w, models.ErrInvalidAPIKey)
			return
		}

		if !m.allow("key:"+key.KeyID, services.TierLimit(key.Tier), w) {
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// allow applies the rate limit, writing the 429 itself on rejection.
func (m *APIKeyMiddleware) allow(bucket string, perMinute int, w http.ResponseWriter) bool {
	if m.limiter == nil {
		return true
	}
	if m.limiter.Allow(bucket, perMinute) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeAuthError(w, models.ErrRateLimited)
	return false
}

// extractKey reads the key from Authorization: Bearer or X-API-Key.
func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// clientIP prefers X-Forwarded-For so demo-mode limits follow the real
// caller behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeAuthError(w http.ResponseWriter, err error) {
	status, msg := models.PublicError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
