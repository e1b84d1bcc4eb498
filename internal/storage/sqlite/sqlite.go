// Package sqlite implements the dataset repository on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tablecast/internal/storage"
)

// Repo implements storage.Repository for SQLite.
//
// SQLite has no native TIMESTAMPTZ type; created_at is stored as an
// RFC3339Nano string for reliable round-trip behavior and easy debugging.
// Schema, rows and fields are stored as JSON text columns.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createTableSQL()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table datasets: %w", err)
	}
	return &Repo{db: db}, nil
}

func createTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	schema_json TEXT NOT NULL,
	rows_json TEXT NOT NULL,
	fields_json TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	column_count INTEGER NOT NULL
)`
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) Save(ctx context.Context, d *storage.Dataset) error {
	schemaJSON, rowsJSON, fieldsJSON, err := storage.MarshalParts(d)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `INSERT OR REPLACE INTO datasets
	(id, name, created_at, schema_json, rows_json, fields_json, row_count, column_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.CreatedAt.UTC().Format(time.RFC3339Nano),
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
		createdAt  string
		schemaJSON string
		rowsJSON   string
		fieldsJSON string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, schema_json, rows_json, fields_json FROM datasets WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Name, &createdAt, &schemaJSON, &rowsJSON, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}

	d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: bad created_at %q: %w", id, createdAt, err)
	}
	if err := storage.UnmarshalParts(&d, []byte(schemaJSON), []byte(rowsJSON), []byte(fieldsJSON)); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}
	return &d, nil
}

func (r *Repo) List(ctx context.Context) ([]storage.Info, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at, row_count, column_count FROM datasets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Info
	for rows.Next() {
		var (
			info      storage.Info
			createdAt string
		)
		if err := rows.Scan(&info.ID, &info.Name, &createdAt, &info.Rows, &info.Columns); err != nil {
			return nil, err
		}
		info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: bad created_at %q: %w", info.ID, createdAt, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
