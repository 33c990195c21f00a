// Package history persists translation records and performance metrics in
// SQLite.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Aeovy/QuickTransType/internal/config"
)

// Schema for the translation history store.
const schema = `
CREATE TABLE IF NOT EXISTS translations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    original_text   TEXT NOT NULL,
    translated_text TEXT NOT NULL,
    source_lang     TEXT,
    target_lang     TEXT NOT NULL,
    mode            TEXT NOT NULL,
    timestamp       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_translations_timestamp ON translations(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_translations_lang ON translations(target_lang, source_lang);

CREATE TABLE IF NOT EXISTS metrics (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp       INTEGER NOT NULL,
    operation_type  TEXT NOT NULL,
    duration_ms     INTEGER NOT NULL,
    success         INTEGER NOT NULL,
    error_type      TEXT,
    char_count      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_metrics_operation ON metrics(operation_type);
`

// Metrics older than this are dropped by CleanupMetrics.
const metricsRetention = 90 * 24 * time.Hour

const defaultPageSize = 20

// Record is one stored translation.
type Record struct {
	ID             int64  `json:"id"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLang     string `json:"source_lang,omitempty"`
	TargetLang     string `json:"target_lang"`
	Mode           string `json:"mode"`
	Timestamp      int64  `json:"timestamp"`
}

// Page is one page of history records plus the total match count.
type Page struct {
	Records []Record `json:"records"`
	Total   int64    `json:"total"`
}

// Query filters and paginates a history lookup. Zero values mean no filter
// and first page at the default size.
type Query struct {
	Page     int64  `json:"page"`
	PageSize int64  `json:"page_size"`
	Search   string `json:"search"`
	Mode     string `json:"mode"`
}

// Stats aggregates metrics over a period.
type Stats struct {
	TotalTranslations      int64               `json:"total_translations"`
	SuccessfulTranslations int64               `json:"successful_translations"`
	FailedTranslations     int64               `json:"failed_translations"`
	AvgDurationMS          float64             `json:"avg_duration_ms"`
	MinDurationMS          int64               `json:"min_duration_ms"`
	MaxDurationMS          int64               `json:"max_duration_ms"`
	TotalCharsTranslated   int64               `json:"total_chars_translated"`
	SelectedModeCount      int64               `json:"selected_mode_count"`
	FullModeCount          int64               `json:"full_mode_count"`
	ErrorDistribution      []ErrorDistribution `json:"error_distribution"`
	HourlyData             []HourlyData        `json:"hourly_data"`
}

// ErrorDistribution counts failures of one error type.
type ErrorDistribution struct {
	ErrorType string `json:"error_type"`
	Count     int64  `json:"count"`
}

// HourlyData is the per-hour latency breakdown of successful translations.
type HourlyData struct {
	Hour        int     `json:"hour"`
	AvgDuration float64 `json:"avg_duration"`
	Count       int64   `json:"count"`
}

// Store represents the SQLite history store.
type Store struct {
	db *sql.DB

	// now is swapped in tests to pin timestamps.
	now func() time.Time
}

// DefaultPath returns the history database location under the user data
// directory.
func DefaultPath() (string, error) {
	dir, err := config.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens or creates the SQLite database at the given path and applies the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertTranslation stores one finished translation and returns its ID.
// sourceLang may be empty when the source language was not detected.
func (s *Store) InsertTranslation(original, translated, sourceLang, targetLang, mode string) (int64, error) {
	var src any
	if sourceLang != "" {
		src = sourceLang
	}

	result, err := s.db.Exec(`
		INSERT INTO translations (original_text, translated_text, source_lang, target_lang, mode, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		original, translated, src, targetLang, mode, s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert translation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	return id, nil
}

// History returns one page of translations, newest first, optionally filtered
// by a substring search over both texts and by mode.
func (s *Store) History(q Query) (*Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	offset := (q.Page - 1) * q.PageSize

	var conditions []string
	var args []any
	if q.Search != "" {
		conditions = append(conditions, "(original_text LIKE ? OR translated_text LIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
	}
	if q.Mode != "" {
		conditions = append(conditions, "mode = ?")
		args = append(args, q.Mode)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	page := &Page{Records: []Record{}}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM translations %s", whereClause)
	if err := s.db.QueryRow(countQuery, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count translations: %w", err)
	}

	dataQuery := fmt.Sprintf(`
		SELECT id, original_text, translated_text, source_lang, target_lang, mode, timestamp
		FROM translations %s
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, whereClause)
	rows, err := s.db.Query(dataQuery, append(args, q.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Record
		var src sql.NullString
		if err := rows.Scan(&r.ID, &r.OriginalText, &r.TranslatedText, &src, &r.TargetLang, &r.Mode, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		r.SourceLang = src.String
		page.Records = append(page.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}

	return page, nil
}

// GetTranslation retrieves one record by ID, or nil when absent.
func (s *Store) GetTranslation(id int64) (*Record, error) {
	var r Record
	var src sql.NullString

	err := s.db.QueryRow(`
		SELECT id, original_text, translated_text, source_lang, target_lang, mode, timestamp
		FROM translations WHERE id = ?`, id,
	).Scan(&r.ID, &r.OriginalText, &r.TranslatedText, &src, &r.TargetLang, &r.Mode, &r.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get translation: %w", err)
	}

	r.SourceLang = src.String
	return &r, nil
}

// CleanupHistory deletes everything beyond the newest keep records and
// returns the number deleted.
func (s *Store) CleanupHistory(keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	result, err := s.db.Exec(`
		DELETE FROM translations
		WHERE id NOT IN (
			SELECT id FROM translations
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		)`, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return deleted, nil
}

// RecordMetric stores the outcome of one translation attempt. errorType may
// be empty on success.
func (s *Store) RecordMetric(operationType string, duration time.Duration, success bool, errorType string, charCount int64) error {
	var errType any
	if errorType != "" {
		errType = errorType
	}

	_, err := s.db.Exec(`
		INSERT INTO metrics (timestamp, operation_type, duration_ms, success, error_type, char_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.now().Unix(), operationType, duration.Milliseconds(), success, errType, charCount,
	)
	if err != nil {
		return fmt.Errorf("record metric: %w", err)
	}

	return nil
}

// Stats aggregates metrics recorded within the named period: "hour", "day"
// or "week". Unknown periods fall back to "day".
func (s *Store) Stats(period string) (*Stats, error) {
	var window time.Duration
	switch period {
	case "hour":
		window = time.Hour
	case "week":
		window = 7 * 24 * time.Hour
	default:
		window = 24 * time.Hour
	}
	since := s.now().Add(-window).Unix()

	stats := &Stats{
		ErrorDistribution: []ErrorDistribution{},
		HourlyData:        []HourlyData{},
	}

	var successful, failed, selected, full sql.NullInt64
	var avgDuration sql.NullFloat64
	var minDuration, maxDuration, totalChars sql.NullInt64

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
			AVG(CASE WHEN success = 1 THEN duration_ms ELSE NULL END),
			MIN(CASE WHEN success = 1 THEN duration_ms ELSE NULL END),
			MAX(CASE WHEN success = 1 THEN duration_ms ELSE NULL END),
			SUM(char_count),
			SUM(CASE WHEN operation_type = 'selected' THEN 1 ELSE 0 END),
			SUM(CASE WHEN operation_type = 'full' THEN 1 ELSE 0 END)
		FROM metrics
		WHERE timestamp > ?`, since,
	).Scan(
		&stats.TotalTranslations,
		&successful,
		&failed,
		&avgDuration,
		&minDuration,
		&maxDuration,
		&totalChars,
		&selected,
		&full,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate metrics: %w", err)
	}

	stats.SuccessfulTranslations = successful.Int64
	stats.FailedTranslations = failed.Int64
	stats.AvgDurationMS = avgDuration.Float64
	stats.MinDurationMS = minDuration.Int64
	stats.MaxDurationMS = maxDuration.Int64
	stats.TotalCharsTranslated = totalChars.Int64
	stats.SelectedModeCount = selected.Int64
	stats.FullModeCount = full.Int64

	errorRows, err := s.db.Query(`
		SELECT error_type, COUNT(*)
		FROM metrics
		WHERE timestamp > ? AND success = 0 AND error_type IS NOT NULL
		GROUP BY error_type
		ORDER BY COUNT(*) DESC, error_type ASC`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query error distribution: %w", err)
	}
	defer errorRows.Close()

	for errorRows.Next() {
		var d ErrorDistribution
		if err := errorRows.Scan(&d.ErrorType, &d.Count); err != nil {
			return nil, fmt.Errorf("scan error distribution: %w", err)
		}
		stats.ErrorDistribution = append(stats.ErrorDistribution, d)
	}
	if err := errorRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate error distribution: %w", err)
	}

	hourlyRows, err := s.db.Query(`
		SELECT CAST(strftime('%H', timestamp, 'unixepoch') AS INTEGER) AS hour,
		       AVG(duration_ms),
		       COUNT(*)
		FROM metrics
		WHERE timestamp > ? AND success = 1
		GROUP BY hour
		ORDER BY hour ASC`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query hourly breakdown: %w", err)
	}
	defer hourlyRows.Close()

	for hourlyRows.Next() {
		var h HourlyData
		if err := hourlyRows.Scan(&h.Hour, &h.AvgDuration, &h.Count); err != nil {
			return nil, fmt.Errorf("scan hourly breakdown: %w", err)
		}
		stats.HourlyData = append(stats.HourlyData, h)
	}
	if err := hourlyRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hourly breakdown: %w", err)
	}

	return stats, nil
}

// CleanupMetrics deletes metrics past the retention window and returns the
// number deleted.
func (s *Store) CleanupMetrics() (int64, error) {
	cutoff := s.now().Add(-metricsRetention).Unix()

	result, err := s.db.Exec(`DELETE FROM metrics WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup metrics: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return deleted, nil
}
