package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/reposcope/reposcope/internal/types"

	_ "modernc.org/sqlite" // Pure Go driver, CGO-free, compatible with CGO_ENABLED=0
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS analyses (
        id          TEXT PRIMARY KEY,
        repo        TEXT NOT NULL,
        scope       TEXT NOT NULL,
        model       TEXT NOT NULL,
        overview    TEXT NOT NULL,
        findings    TEXT NOT NULL,
        created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
        duration_ms INTEGER,
        status      TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_analyses_repo ON analyses(repo);
    CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
    `
	_, err := db.Exec(schema)
	return err
}

func (r *SQLiteRepository) SaveAnalysis(ctx context.Context, record *AnalysisRecord) error {
	findings, err := json.Marshal(record.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO analyses (id, repo, scope, model, overview, findings, duration_ms, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, record.ID, record.Repo, record.Scope, record.Model, record.Overview,
		string(findings), record.DurationMs, record.Status, record.CreatedAt)
	return err
}

func (r *SQLiteRepository) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, repo, scope, model, overview, findings, created_at, duration_ms, status
        FROM analyses WHERE id = ?
    `, id)
	return scanAnalysis(row)
}

func (r *SQLiteRepository) ListRecentAnalyses(ctx context.Context, limit int) ([]*AnalysisRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, repo, scope, model, overview, findings, created_at, duration_ms, status
        FROM analyses
        ORDER BY created_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*AnalysisRecord
	for rows.Next() {
		record, err := scanAnalysis(rows)
		if err != nil {
			slog.Warn("scan analysis failed", "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Scanner interface to support both Row and Rows
type Scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s Scanner) (*AnalysisRecord, error) {
	var id, repo, scope, model, overview, findingsData, status string
	var createdAt time.Time
	var durationMs int64

	if err := s.Scan(&id, &repo, &scope, &model, &overview, &findingsData, &createdAt, &durationMs, &status); err != nil {
		return nil, err
	}

	var findings []types.Finding
	if err := json.Unmarshal([]byte(findingsData), &findings); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}

	return &AnalysisRecord{
		ID:         id,
		Repo:       repo,
		Scope:      scope,
		Model:      model,
		Overview:   overview,
		Findings:   findings,
		CreatedAt:  createdAt,
		DurationMs: durationMs,
		Status:     status,
	}, nil
}
