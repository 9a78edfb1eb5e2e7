package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/codescanai/codescan/internal/analyzer"
	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/services"
)

const (
	// maxBatchItems caps one batch request.
	maxBatchItems = 10
	// batchConcurrency caps analyses running at once for a batch.
	batchConcurrency = 5
)

// AnalyzeController handles the analysis endpoints: direct code, file
// upload, batches, GitHub fetches, plus history and cache management.
type AnalyzeController struct {
	scanner      *services.IncrementalScanner
	github       *services.GitHubService
	history      *models.HistoryService // nil without a database
	maxCodeBytes int64
	logger       *slog.Logger
}

func NewAnalyzeController(
	scanner *services.IncrementalScanner,
	github *services.GitHubService,
	history *models.HistoryService,
	maxCodeBytes int64,
	logger *slog.Logger,
) *AnalyzeController {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeController{
		scanner:      scanner,
		github:       github,
		history:      history,
		maxCodeBytes: maxCodeBytes,
		logger:       logger,
	}
}

// AnalyzeRequest is the body of POST /analyze. Language and filename are
// optional hints.
type AnalyzeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Filename string `json:"filename"`
}

// PostAnalyze runs one analysis and returns the result document.
// Cache outcome and processing time travel as headers so the body stays
// exactly the result schema.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := c.decodeAnalyzeRequest(w, r)
	if err != nil {
		respondError(w, err)
		return
	}

	c.runScan(w, r, analyzer.Request{
		Code:     req.Code,
		Language: req.Language,
		Filename: req.Filename,
	})
}

// PostAnalyzeFile accepts a multipart upload and infers the language from
// the file extension.
func (c *AnalyzeController) PostAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxCodeBytes*2)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, models.ErrInvalidRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, c.maxCodeBytes+1))
	if err != nil {
		respondError(w, models.ErrInvalidRequest)
		return
	}
	if int64(len(content)) > c.maxCodeBytes {
		respondError(w, models.ErrCodeTooLarge)
		return
	}

	c.runScan(w, r, analyzer.Request{
		Code:     string(content),
		Language: DetectLanguage(header.Filename),
		Filename: header.Filename,
	})
}

// BatchItemResult reports one batch entry: either a result or the public
// error message for that entry. One bad file never fails the batch.
type BatchItemResult struct {
	Filename string                 `json:"filename,omitempty"`
	Result   *models.AnalysisResult `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// PostAnalyzeBatch analyzes up to maxBatchItems entries with bounded
// concurrency.
func (c *AnalyzeController) PostAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxCodeBytes*maxBatchItems*2)

	var items []AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		respondError(w, decodeError(err))
		return
	}
	if len(items) == 0 {
		respondError(w, models.ErrInvalidRequest)
		return
	}
	if len(items) > maxBatchItems {
		respondError(w, models.ErrBatchTooLarge)
		return
	}

	results := make([]BatchItemResult, len(items))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i].Filename = item.Filename
			if int64(len(item.Code)) > c.maxCodeBytes {
				_, results[i].Error = models.PublicError(models.ErrCodeTooLarge)
				return nil
			}
			scan, err := c.scanner.Scan(ctx, analyzer.Request{
				Code:     item.Code,
				Language: item.Language,
				Filename: item.Filename,
			})
			if err != nil {
				c.logger.Error("batch entry failed", "filename", item.Filename, "error", err)
				_, results[i].Error = models.PublicError(err)
				return nil
			}
			results[i].Result = scan.Result
			return nil
		})
	}
	// Entries swallow their own errors, so Wait only returns ctx errors.
	if err := g.Wait(); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// GitHubAnalyzeRequest names one file in a GitHub repository.
type GitHubAnalyzeRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
	Ref   string `json:"ref"`
}

// PostAnalyzeGitHub fetches a file from GitHub and runs it through the
// same pipeline as pasted code.
func (c *AnalyzeController) PostAnalyzeGitHub(w http.ResponseWriter, r *http.Request) {
	var req GitHubAnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		respondError(w, decodeError(err))
		return
	}
	if req.Owner == "" || req.Repo == "" || req.Path == "" {
		respondError(w, models.ErrInvalidRequest)
		return
	}

	content, err := c.github.FetchFile(r.Context(), req.Owner, req.Repo, req.Path, req.Ref)
	if err != nil {
		c.logger.Error("github fetch failed",
			"owner", req.Owner, "repo", req.Repo, "path", req.Path, "error", err)
		respondError(w, models.ErrAnalysisNotFound)
		return
	}
	if int64(len(content)) > c.maxCodeBytes {
		respondError(w, models.ErrCodeTooLarge)
		return
	}

	c.runScan(w, r, analyzer.Request{
		Code:     content,
		Language: DetectLanguage(req.Path),
		Filename: req.Owner + "/" + req.Repo + "/" + req.Path,
	})
}

// GetHistory lists recent analyses of one file path.
func (c *AnalyzeController) GetHistory(w http.ResponseWriter, r *http.Request) {
	if c.history == nil {
		respondError(w, models.ErrHistoryUnavailable)
		return
	}

	filePath := chi.URLParam(r, "*")
	if filePath == "" {
		respondError(w, models.ErrInvalidRequest)
		return
	}

	records, err := c.history.FileHistory(r.Context(), filePath, models.DefaultHistoryLimit)
	if err != nil {
		c.logger.Error("history lookup failed", "path", filePath, "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"file_path": filePath,
		"history":   records,
	})
}

// GetTrends returns daily rollups for the last N days (default 7).
func (c *AnalyzeController) GetTrends(w http.ResponseWriter, r *http.Request) {
	if c.history == nil {
		respondError(w, models.ErrHistoryUnavailable)
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, models.ErrInvalidRequest)
			return
		}
		days = parsed
	}

	points, err := c.history.Trends(r.Context(), days)
	if err != nil {
		c.logger.Error("trends lookup failed", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"days":   len(points),
		"trends": points,
	})
}

// DeleteCache clears cached analyses matching the pattern query
// (default the whole analysis namespace).
func (c *AnalyzeController) DeleteCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "analysis:*"
	}
	cleared := c.scanner.ClearCache(pattern)
	c.logger.Info("cache cleared", "pattern", pattern, "entries", cleared)
	respondJSON(w, http.StatusOK, map[string]any{
		"pattern": pattern,
		"cleared": cleared,
	})
}

// runScan executes the scan and writes result, cache status and timing.
func (c *AnalyzeController) runScan(w http.ResponseWriter, r *http.Request, req analyzer.Request) {
	scan, err := c.scanner.Scan(r.Context(), req)
	if err != nil {
		c.logger.Error("analysis failed", "language", req.Language, "error", err)
		respondError(w, err)
		return
	}

	w.Header().Set("X-Cache", strings.ToUpper(scan.CacheStatus))
	w.Header().Set("X-Process-Time", strconv.FormatFloat(scan.Duration.Seconds(), 'f', 4, 64))
	respondJSON(w, http.StatusOK, scan.Result)
}

// decodeAnalyzeRequest parses and validates the analyze body.
func (c *AnalyzeController) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (*AnalyzeRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxCodeBytes*2)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, decodeError(err)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, models.ErrEmptyCode
	}
	if int64(len(req.Code)) > c.maxCodeBytes {
		return nil, models.ErrCodeTooLarge
	}
	return &req, nil
}

// decodeError distinguishes an oversized body from a malformed one.
func decodeError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return models.ErrCodeTooLarge
	}
	return models.ErrInvalidRequest
}

// languageByExtension maps file extensions to analysis language tags.
var languageByExtension = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".sh":    "shell",
	".sql":   "sql",
}

// DetectLanguage infers the language tag from a filename, empty when the
// extension is unknown.
func DetectLanguage(filename string) string {
	return languageByExtension[strings.ToLower(path.Ext(filename))]
}
