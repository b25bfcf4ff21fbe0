package kv

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzaria-checkout/internal/domain"
)

// Postgres stores entries in the kv_entries table. Expired rows are
// evicted lazily on read.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Store backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) *Postgres {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Postgres{pool: pool, logger: logger}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `
SELECT value, expires_at
FROM kv_entries
WHERE key = $1
`
	var value []byte
	var expiresAt *time.Time
	err := p.pool.QueryRow(ctx, q, key).Scan(&value, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		if _, err := p.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
			p.logger.Printf("evict expired key %q: %v", key, err)
		}
		return nil, domain.ErrNotFound
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	return p.upsert(ctx, key, value, nil)
}

func (p *Postgres) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl)
	return p.upsert(ctx, key, value, &expiresAt)
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return err
}

func (p *Postgres) upsert(ctx context.Context, key string, value []byte, expiresAt *time.Time) error {
	const q = `
INSERT INTO kv_entries (key, value, expires_at, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()
`
	_, err := p.pool.Exec(ctx, q, key, value, expiresAt)
	return err
}
