package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescanai/codescan/internal/analyzer"
	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/services"
)

func newTestRouter(t *testing.T, maxCodeBytes int64) *chi.Mux {
	t.Helper()

	cache := services.NewTTLCache(time.Minute)
	t.Cleanup(cache.Stop)
	scanner := services.NewIncrementalScanner(analyzer.NewMockAnalyzer(0), cache, nil, nil, 0, nil)
	ctrl := NewAnalyzeController(scanner, nil, nil, maxCodeBytes, nil)

	r := chi.NewRouter()
	r.Post("/analyze", ctrl.PostAnalyze)
	r.Post("/api/v1/analyze/file", ctrl.PostAnalyzeFile)
	r.Post("/api/v1/analyze/batch", ctrl.PostAnalyzeBatch)
	r.Post("/api/v1/analyze/github", ctrl.PostAnalyzeGitHub)
	r.Get("/api/v1/analyze/history/*", ctrl.GetHistory)
	r.Get("/api/v1/analyze/trends", ctrl.GetTrends)
	r.Delete("/api/v1/analyze/cache", ctrl.DeleteCache)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPostAnalyze(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := postJSON(t, router, "/analyze", AnalyzeRequest{
		Code:     "eval(userInput)",
		Language: "javascript",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	elapsed, err := strconv.ParseFloat(rec.Header().Get("X-Process-Time"), 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 0.0)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 65, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Use of eval() function is dangerous", result.Issues[0].Message)

	// Identical content comes back from the cache.
	rec = postJSON(t, router, "/analyze", AnalyzeRequest{
		Code:     "eval(userInput)",
		Language: "javascript",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestPostAnalyzeBlankCode(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := postJSON(t, router, "/analyze", AnalyzeRequest{Code: "   \n\t"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "no code provided"}`, rec.Body.String())
}

func TestPostAnalyzeMalformedBody(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "invalid request body"}`, rec.Body.String())
}

func TestPostAnalyzeCodeTooLarge(t *testing.T) {
	router := newTestRouter(t, 64)

	rec := postJSON(t, router, "/analyze", AnalyzeRequest{Code: strings.Repeat("x", 65)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "code exceeds maximum file size"}`, rec.Body.String())
}

func TestPostAnalyzeFile(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "checkout.js")
	require.NoError(t, err)
	_, err = part.Write([]byte("console.log('debug');\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 80, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "console.log statement left in code", result.Issues[0].Message)
}

func TestPostAnalyzeFileMissingField(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("notfile", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostAnalyzeBatch(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := postJSON(t, router, "/api/v1/analyze/batch", []AnalyzeRequest{
		{Code: "eval(x)", Filename: "a.js"},
		{Code: "   ", Filename: "blank.js"},
		{Code: "function ok() { return 1 }", Filename: "c.js"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []BatchItemResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)

	// Results stay aligned with the request order.
	assert.Equal(t, "a.js", resp.Results[0].Filename)
	require.NotNil(t, resp.Results[0].Result)
	assert.Equal(t, 65, resp.Results[0].Result.Score)
	assert.Empty(t, resp.Results[0].Error)

	assert.Equal(t, "blank.js", resp.Results[1].Filename)
	assert.Nil(t, resp.Results[1].Result)
	assert.Equal(t, "no code provided", resp.Results[1].Error)

	require.NotNil(t, resp.Results[2].Result)
	assert.Equal(t, 85, resp.Results[2].Result.Score)
}

func TestPostAnalyzeBatchLimits(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	var tooMany []AnalyzeRequest
	for i := 0; i < maxBatchItems+1; i++ {
		tooMany = append(tooMany, AnalyzeRequest{Code: fmt.Sprintf("x%d", i)})
	}

	rec := postJSON(t, router, "/api/v1/analyze/batch", tooMany)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "too many files in batch"}`, rec.Body.String())

	rec = postJSON(t, router, "/api/v1/analyze/batch", []AnalyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "invalid request body"}`, rec.Body.String())
}

func TestPostAnalyzeGitHubValidation(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := postJSON(t, router, "/api/v1/analyze/github", GitHubAnalyzeRequest{
		Owner: "octocat",
		Repo:  "",
		Path:  "main.go",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "invalid request body"}`, rec.Body.String())
}

func TestHistoryEndpointsWithoutDatabase(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/history/src/app.js", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error": "history is not available without a database"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/analyze/trends?days=7", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeleteCache(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := postJSON(t, router, "/analyze", AnalyzeRequest{Code: "eval(x)", Language: "go"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/analyze/cache?pattern=analysis:go:*", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Pattern string `json:"pattern"`
		Cleared int    `json:"cleared"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "analysis:go:*", resp.Pattern)
	assert.Equal(t, 1, resp.Cleared)

	// The next identical request misses again.
	rec2 := postJSON(t, router, "/analyze", AnalyzeRequest{Code: "eval(x)", Language: "go"})
	assert.Equal(t, "MISS", rec2.Header().Get("X-Cache"))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"main.go", "go"},
		{"src/app.PY", "python"},
		{"component.tsx", "typescript"},
		{"script.js", "javascript"},
		{"query.sql", "sql"},
		{"README.md", ""},
		{"Makefile", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.filename), "filename %q", tt.filename)
	}
}
