package server

import (
	"context"
	"database/sql"
	"errors"
	"time"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"

	"keyward/internal/errs"
)

// PostgresStore is the durable DirectoryStore and BackupStore.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and runs migrations.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "open postgres", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS public_keys (
			user_id    TEXT PRIMARY KEY,
			public_key BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backups (
			user_id    TEXT PRIMARY KEY,
			blob       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errs.Wrap(errs.KindIO, "run migration", err)
		}
	}
	return nil
}

// SavePublicKey upserts a published key.
func (s *PostgresStore) SavePublicKey(ctx context.Context, userID string, publicKey []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO public_keys (user_id, public_key, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET public_key = $2, updated_at = $3`,
		userID, publicKey, time.Now().UTC())
	if err != nil {
		return errs.Wrap(errs.KindIO, "save public key", err)
	}
	return nil
}

// PublicKey returns the published key for userID, if any.
func (s *PostgresStore) PublicKey(ctx context.Context, userID string) ([]byte, bool, error) {
	var key []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT public_key FROM public_keys WHERE user_id = $1`, userID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.KindIO, "load public key", err)
	}
	return key, true, nil
}

// SaveBackup upserts a backup blob.
func (s *PostgresStore) SaveBackup(ctx context.Context, userID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backups (user_id, blob, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET blob = $2, updated_at = $3`,
		userID, blob, time.Now().UTC())
	if err != nil {
		return errs.Wrap(errs.KindIO, "save backup", err)
	}
	return nil
}

// Backup returns the backup blob for userID, if any.
func (s *PostgresStore) Backup(ctx context.Context, userID string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM backups WHERE user_id = $1`, userID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.KindIO, "load backup", err)
	}
	return blob, true, nil
}

// Compile-time assertions for both store roles.
var (
	_ DirectoryStore = (*PostgresStore)(nil)
	_ BackupStore    = (*PostgresStore)(nil)
)
