package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const postgresOpTimeout = 5 * time.Second

// Postgres keeps guest keys in the guest_storage table created by the
// migrations in internal/db.
type Postgres struct {
	db        *sql.DB
	namespace string
}

// NewPostgres wraps an open, migrated database
func NewPostgres(db *sql.DB, namespace string) *Postgres {
	return &Postgres{db: db, namespace: namespace}
}

func (p *Postgres) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	query := `
		SELECT value
		FROM guest_storage
		WHERE namespace = $1 AND key = $2
	`
	var value string
	err := p.db.QueryRowContext(ctx, query, p.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to query guest_storage: %v", ErrUnavailable, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	query := `
		INSERT INTO guest_storage (namespace, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := p.db.ExecContext(ctx, query, p.namespace, key, value); err != nil {
		return fmt.Errorf("%w: failed to upsert guest_storage: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
