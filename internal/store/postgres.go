package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumbung-erp/lumbung-erp/internal/platform/db"
)

// Postgres persists documents in a single JSONB-backed table.
//
// Schema:
//
//	CREATE TABLE documents (
//	    collection TEXT NOT NULL,
//	    id         TEXT NOT NULL,
//	    data       JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (collection, id)
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs the Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// List returns every document in the collection, oldest first.
func (s *Postgres) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection=$1 ORDER BY created_at, id`, collection)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", collection, err)
	}
	defer rows.Close()
	return scanDocuments(rows, collection)
}

// Create inserts a new document and returns its generated id.
func (s *Postgres) Create(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`, collection, id, data)
	if err != nil {
		return "", fmt.Errorf("store: create %s: %w", collection, err)
	}
	return id, nil
}

// Update merges the patch into an existing document.
func (s *Postgres) Update(ctx context.Context, collection, id string, patch json.RawMessage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW() WHERE collection=$1 AND id=$2`,
		collection, id, patch)
	if err != nil {
		return fmt.Errorf("store: update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes a document.
func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BatchUpdate applies the patch to every named document inside one
// transaction. A missing id aborts the whole batch.
func (s *Postgres) BatchUpdate(ctx context.Context, collection string, ids []string, patch json.RawMessage) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW() WHERE collection=$1 AND id = ANY($2)`,
			collection, ids, patch)
		if err != nil {
			return fmt.Errorf("store: batch update %s: %w", collection, err)
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return ErrNotFound
		}
		return nil
	})
}

// QueryByField returns documents whose top-level field equals value.
func (s *Postgres) QueryByField(ctx context.Context, collection, field, value string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection=$1 AND data->>$2 = $3 ORDER BY created_at, id`,
		collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("store: query %s by %s: %w", collection, field, err)
	}
	defer rows.Close()
	return scanDocuments(rows, collection)
}

func scanDocuments(rows pgx.Rows, collection string) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate %s: %w", collection, err)
	}
	return docs, nil
}
