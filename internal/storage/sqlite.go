// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/internal/popularity"
)

const documentColumns = `id, title, content, court, date,
	click_count, click_position, click_impression, click_timestamp,
	click_count_raw, click_count_corrected, click_impression_adjusted,
	popularity_raw, popularity_log, popularity_percentile,
	metadata, created_at, updated_at`

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		content TEXT NOT NULL,
		court TEXT,
		date TEXT,
		click_count INTEGER NOT NULL DEFAULT 0,
		click_position INTEGER NOT NULL DEFAULT 0,
		click_impression INTEGER NOT NULL DEFAULT 0,
		click_timestamp TEXT,
		click_count_raw INTEGER NOT NULL DEFAULT 0,
		click_count_corrected REAL NOT NULL DEFAULT 0,
		click_impression_adjusted REAL NOT NULL DEFAULT 0,
		popularity_raw REAL NOT NULL DEFAULT 0,
		popularity_log REAL NOT NULL DEFAULT 0,
		popularity_percentile REAL NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_court ON documents(court);
	CREATE INDEX IF NOT EXISTS idx_documents_popularity ON documents(popularity_percentile);

	CREATE TABLE IF NOT EXISTS position_bias (
		position INTEGER PRIMARY KEY,
		impressions INTEGER NOT NULL,
		clicks INTEGER NOT NULL,
		probability REAL NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS load_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		documents INTEGER NOT NULL,
		ingested INTEGER NOT NULL,
		prior REAL NOT NULL,
		reference_time TIMESTAMP NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocuments inserts or replaces documents in a single transaction. CreatedAt is
// kept for documents that already exist.
func (s *SQLiteStorage) UpsertDocuments(ctx context.Context, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			court = excluded.court,
			date = excluded.date,
			click_count = excluded.click_count,
			click_position = excluded.click_position,
			click_impression = excluded.click_impression,
			click_timestamp = excluded.click_timestamp,
			click_count_raw = excluded.click_count_raw,
			click_count_corrected = excluded.click_count_corrected,
			click_impression_adjusted = excluded.click_impression_adjusted,
			popularity_raw = excluded.popularity_raw,
			popularity_log = excluded.popularity_log,
			popularity_percentile = excluded.popularity_percentile,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, doc := range docs {
		metadataJSON, err := marshalMetadata(doc.Metadata)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx,
			doc.ID, doc.Title, doc.Content, doc.Court, doc.Date,
			doc.ClickCount, doc.ClickPosition, doc.ClickImpression, nullString(doc.ClickTimestamp),
			doc.ClickCountRaw, doc.ClickCountCorrected, doc.ClickImpressionAdjusted,
			doc.PopularityRaw, doc.PopularityLog, doc.PopularityPercentile,
			metadataJSON, doc.CreatedAt, doc.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// DeleteAllDocuments removes every document and the stored bias curve.
func (s *SQLiteStorage) DeleteAllDocuments(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM position_bias`); err != nil {
		return err
	}
	return tx.Commit()
}

// ListDocuments returns documents ordered by descending popularity percentile.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+`
		 FROM documents ORDER BY popularity_percentile DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SaveBiasCurve replaces the stored position-bias curve.
func (s *SQLiteStorage) SaveBiasCurve(ctx context.Context, bias *popularity.PositionBias) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM position_bias`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO position_bias (position, impressions, clicks, probability, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, pos := range bias.Positions() {
		stats, _ := bias.Stats(pos)
		if _, err := stmt.ExecContext(ctx, pos, stats.Impressions, stats.Clicks, bias.Probability(pos), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadBiasCurve rebuilds the position-bias model from stored counts. An empty table
// yields an empty model.
func (s *SQLiteStorage) LoadBiasCurve(ctx context.Context) (*popularity.PositionBias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, impressions, clicks FROM position_bias ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[int]popularity.PositionStats)
	for rows.Next() {
		var pos int
		var st popularity.PositionStats
		if err := rows.Scan(&pos, &st.Impressions, &st.Clicks); err != nil {
			return nil, err
		}
		stats[pos] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return popularity.NewPositionBias(stats), nil
}

// RecordLoadRun appends a load run and sets its ID.
func (s *SQLiteStorage) RecordLoadRun(ctx context.Context, run *LoadRun) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO load_runs (dataset, started_at, documents, ingested, prior, reference_time, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Dataset, run.StartedAt, run.Documents, run.Ingested, run.Prior, run.ReferenceTime, run.DurationMs,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

// LastLoadRun returns the most recent load run.
func (s *SQLiteStorage) LastLoadRun(ctx context.Context) (*LoadRun, error) {
	var run LoadRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, started_at, documents, ingested, prior, reference_time, duration_ms
		 FROM load_runs ORDER BY id DESC LIMIT 1`,
	).Scan(&run.ID, &run.Dataset, &run.StartedAt, &run.Documents, &run.Ingested, &run.Prior, &run.ReferenceTime, &run.DurationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var doc models.Document
	var title, court, date, timestamp, metadataJSON sql.NullString
	if err := row.Scan(
		&doc.ID, &title, &doc.Content, &court, &date,
		&doc.ClickCount, &doc.ClickPosition, &doc.ClickImpression, &timestamp,
		&doc.ClickCountRaw, &doc.ClickCountCorrected, &doc.ClickImpressionAdjusted,
		&doc.PopularityRaw, &doc.PopularityLog, &doc.PopularityPercentile,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	doc.Title, doc.Court, doc.Date = title.String, court.String, date.String
	if timestamp.Valid {
		ts := timestamp.String
		doc.ClickTimestamp = &ts
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	doc.Sanitize()
	return &doc, nil
}

func marshalMetadata(m map[string]interface{}) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
