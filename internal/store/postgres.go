package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/text-analysis/web/internal/models"
)

// PostgresStore keeps uploaded dataset records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the datasets table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS datasets (
			id           VARCHAR(26)  PRIMARY KEY,
			session_id   VARCHAR(64)  NOT NULL,
			filename     VARCHAR(255) NOT NULL,
			columns      TEXT[]       NOT NULL,
			size         BIGINT       NOT NULL,
			content_hash CHAR(64)     NOT NULL,
			object_key   TEXT         NOT NULL,
			created_at   TIMESTAMPTZ  DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS datasets_session_idx ON datasets (session_id, created_at DESC);
	`)
	return err
}

func (s *PostgresStore) InsertDataset(ctx context.Context, d *models.DatasetRecord) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, session_id, filename, columns, size, content_hash, object_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.SessionID, d.Filename, d.Columns, d.Size, d.ContentHash, d.ObjectKey, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context, sessionID string) ([]models.DatasetRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, filename, columns, size, content_hash, object_key, created_at
		 FROM datasets WHERE session_id = $1 ORDER BY created_at DESC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []models.DatasetRecord
	for rows.Next() {
		var d models.DatasetRecord
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Filename, &d.Columns, &d.Size, &d.ContentHash, &d.ObjectKey, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByHash reports how many records of the content have an archived copy.
func (s *PostgresStore) CountByHash(ctx context.Context, hash string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM datasets WHERE content_hash = $1 AND object_key <> ''`, hash).Scan(&n)
	return n, err
}
