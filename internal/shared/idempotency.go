package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyStore persists client submission tokens so a double-click on a
// form cannot post the same movement or pre-order twice.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// ErrDuplicateSubmission indicates a token that was already consumed.
var ErrDuplicateSubmission = errors.New("submission already processed")

// CheckAndInsert ensures token uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, token, module string) error {
	if s == nil {
		return nil
	}
	if token == "" {
		return errors.New("idempotency token required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`,
		token, module, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSubmission
		}
		return err
	}
	return nil
}

// Delete removes a token, used to roll back after the guarded operation fails.
func (s *IdempotencyStore) Delete(ctx context.Context, token string) error {
	if s == nil {
		return nil
	}
	if token == "" {
		return errors.New("idempotency token required")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key=$1`, token)
	return err
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
