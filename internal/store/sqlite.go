package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ayush/text-analysis/web/internal/models"
)

const sqliteTimeFormat = time.RFC3339Nano

// SQLiteStore keeps dataset records in a local SQLite file. It is used when
// no PostgreSQL DSN is configured.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the datasets table if it doesn't exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS datasets (
			id           TEXT PRIMARY KEY,
			session_id   TEXT NOT NULL,
			filename     TEXT NOT NULL,
			columns      TEXT NOT NULL,
			size         INTEGER NOT NULL,
			content_hash TEXT NOT NULL,
			object_key   TEXT NOT NULL,
			created_at   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS datasets_session_idx ON datasets (session_id, created_at);
	`)
	return err
}

func (s *SQLiteStore) InsertDataset(ctx context.Context, d *models.DatasetRecord) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	cols, err := json.Marshal(d.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, session_id, filename, columns, size, content_hash, object_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.Filename, string(cols), d.Size, d.ContentHash, d.ObjectKey,
		d.CreatedAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context, sessionID string) ([]models.DatasetRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, filename, columns, size, content_hash, object_key, created_at
		 FROM datasets WHERE session_id = ? ORDER BY created_at DESC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []models.DatasetRecord
	for rows.Next() {
		var (
			d       models.DatasetRecord
			cols    string
			created string
		)
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Filename, &cols, &d.Size, &d.ContentHash, &d.ObjectKey, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cols), &d.Columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
		if d.CreatedAt, err = time.Parse(sqliteTimeFormat, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountByHash(ctx context.Context, hash string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE content_hash = ? AND object_key <> ''`, hash).Scan(&n)
	return n, err
}
