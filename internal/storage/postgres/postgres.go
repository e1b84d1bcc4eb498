// Package postgres implements the dataset repository on Postgres via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tablecast/internal/storage"
)

// Repo implements storage.Repository for Postgres.
//
// Schema, rows and fields are stored as JSONB columns; Save is idempotent
// through INSERT ... ON CONFLICT (id) DO UPDATE.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table datasets: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func createTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	schema_json JSONB NOT NULL,
	rows_json JSONB NOT NULL,
	fields_json JSONB NOT NULL,
	row_count BIGINT NOT NULL,
	column_count BIGINT NOT NULL
)`
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) Save(ctx context.Context, d *storage.Dataset) error {
	schemaJSON, rowsJSON, fieldsJSON, err := storage.MarshalParts(d)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO datasets
	(id, name, created_at, schema_json, rows_json, fields_json, row_count, column_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		created_at = EXCLUDED.created_at,
		schema_json = EXCLUDED.schema_json,
		rows_json = EXCLUDED.rows_json,
		fields_json = EXCLUDED.fields_json,
		row_count = EXCLUDED.row_count,
		column_count = EXCLUDED.column_count`,
		d.ID, d.Name, d.CreatedAt,
		string(schemaJSON), string(rowsJSON), string(fieldsJSON),
		len(d.Rows), d.Schema.Len(),
	)
	if err != nil {
		return fmt.Errorf("save dataset %s: %w", d.ID, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*storage.Dataset, error) {
	var (
		d          storage.Dataset
		schemaJSON []byte
		rowsJSON   []byte
		fieldsJSON []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, schema_json, rows_json, fields_json FROM datasets WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Name, &d.CreatedAt, &schemaJSON, &rowsJSON, &fieldsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}

	if err := storage.UnmarshalParts(&d, schemaJSON, rowsJSON, fieldsJSON); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}
	return &d, nil
}

func (r *Repo) List(ctx context.Context) ([]storage.Info, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at, row_count, column_count FROM datasets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Info
	for rows.Next() {
		var info storage.Info
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt, &info.Rows, &info.Columns); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
