package models

import (
	"context"
	"fmt"
	"time"
)

// AnalysisRecord is one persisted analysis outcome. Issue bodies are not
// stored, only the counts needed for history listings and trend rollups.
type AnalysisRecord struct {
	ID            int64     `json:"id"`
	FilePath      string    `json:"file_path"`
	Language      string    `json:"language"`
	ContentHash   string    `json:"content_hash"`
	Score         int       `json:"score"`
	IssueCount    int       `json:"issue_count"`
	ErrorCount    int       `json:"error_count"`
	SecurityCount int       `json:"security_count"`
	CacheStatus   string    `json:"cache_status"`
	DurationMS    float64   `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// TrendPoint is one day in the trends rollup. Days without analyses are
// zero-filled by Trends.
type TrendPoint struct {
	Day            time.Time `json:"day"`
	Analyses       int       `json:"analyses"`
	IssuesFound    int       `json:"issues_found"`
	SecurityIssues int       `json:"security_issues"`
	AvgScore       float64   `json:"avg_score"`
}

// DefaultHistoryLimit caps per-file history listings.
const DefaultHistoryLimit = 10

// HistoryService stores analysis records and daily rollups.
type HistoryService struct {
	DB *Database
}

func NewHistoryService(db *Database) *HistoryService {
	return &HistoryService{DB: db}
}

// Record inserts the analysis and folds it into that day's rollup inside
// one transaction.
func (hs *HistoryService) Record(ctx context.Context, rec *AnalysisRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := hs.DB.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO analyses
			(file_path, language, content_hash, score, issue_count, error_count, security_count, cache_status, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		rec.FilePath, rec.Language, rec.ContentHash, rec.Score,
		rec.IssueCount, rec.ErrorCount, rec.SecurityCount,
		rec.CacheStatus, rec.DurationMS,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}

	// Weighted running average keeps avg_score exact without rescanning
	// the analyses table.
	_, err = tx.Exec(ctx, `
		INSERT INTO daily_stats (day, analyses, issues_found, security_issues, avg_score)
		VALUES (CURRENT_DATE, 1, $1, $2, $3)
		ON CONFLICT (day) DO UPDATE SET
			analyses        = daily_stats.analyses + 1,
			issues_found    = daily_stats.issues_found + EXCLUDED.issues_found,
			security_issues = daily_stats.security_issues + EXCLUDED.security_issues,
			avg_score       = (daily_stats.avg_score * daily_stats.analyses + EXCLUDED.avg_score)
			                  / (daily_stats.analyses + 1)`,
		rec.IssueCount, rec.SecurityCount, float64(rec.Score),
	)
	if err != nil {
		return fmt.Errorf("update daily stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}
	return nil
}

// FileHistory returns the most recent analyses of path, newest first.
func (hs *HistoryService) FileHistory(ctx context.Context, path string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := hs.DB.Pool.Query(ctx, `
		SELECT id, file_path, language, content_hash, score, issue_count,
		       error_count, security_count, cache_status, duration_ms, created_at
		FROM analyses
		WHERE file_path = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		path, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("file history: %w", err)
	}
	defer rows.Close()

	records := []AnalysisRecord{}
	for rows.Next() {
		var rec AnalysisRecord
		err := rows.Scan(
			&rec.ID, &rec.FilePath, &rec.Language, &rec.ContentHash,
			&rec.Score, &rec.IssueCount, &rec.ErrorCount, &rec.SecurityCount,
			&rec.CacheStatus, &rec.DurationMS, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("file history: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("file history: %w", err)
	}
	return records, nil
}

// Trends returns one point per day for the last days days, oldest first.
// Days with no recorded analyses appear as zero points so charts do not
// skip gaps.
func (hs *HistoryService) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := hs.DB.Pool.Query(ctx, `
		SELECT day, analyses, issues_found, security_issues, avg_score
		FROM daily_stats
		WHERE day > CURRENT_DATE - $1::int
		ORDER BY day`,
		days,
	)
	if err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]TrendPoint, days)
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Day, &p.Analyses, &p.IssuesFound, &p.SecurityIssues, &p.AvgScore); err != nil {
			return nil, fmt.Errorf("trends: %w", err)
		}
		byDay[p.Day.Format("2006-01-02")] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}

	// Zero-fill missing days.
	points := make([]TrendPoint, 0, days)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		if p, ok := byDay[day.Format("2006-01-02")]; ok {
			points = append(points, p)
			continue
		}
		points = append(points, TrendPoint{Day: day})
	}
	return points, nil
}
