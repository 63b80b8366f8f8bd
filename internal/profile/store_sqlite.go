package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file key/value store for running without a server,
// e.g. from the command line.
type SQLiteStore struct {
	db    *sql.DB
	codec blobCodec
}

func OpenSQLiteStore(ctx context.Context, path string, sealer Sealer) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// An in-memory database only lives as long as its connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS profile_blobs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create profile_blobs table: %w", err)
	}

	return &SQLiteStore{db: db, codec: blobCodec{sealer: sealer}}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, key string, p *PatientProfile) error {
	blob, err := s.codec.encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile_blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (*PatientProfile, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM profile_blobs WHERE key = ?", key).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return s.codec.decode(blob)
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM profile_blobs WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to clear profile: %w", err)
	}
	return nil
}
