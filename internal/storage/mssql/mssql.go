// Package mssql implements the dataset repository on SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"tablecast/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
//
// JSON documents are stored in NVARCHAR(MAX) columns; Save upserts through
// MERGE so re-uploading under the same id replaces the stored dataset.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	return `IF OBJECT_ID('datasets', 'U') IS NULL
CREATE TABLE datasets (
	id NVARCHAR(64) NOT NULL PRIMARY KEY,
	name NVARCHAR(255) NOT NULL,
	created_at DATETIMEOFFSET NOT NULL,
	schema_json NVARCHAR(MAX) NOT NULL,
	rows_json NVARCHAR(MAX) NOT NULL,
	fields_json NVARCHAR(MAX) NOT NULL,
	row_count BIGINT NOT NULL,
	column_count BIGINT NOT NULL
)`
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) Save(ctx context.Context, d *storage.Dataset) error {
	schemaJSON, rowsJSON, fieldsJSON, err := storage.MarshalParts(d)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `MERGE datasets AS t
USING (SELECT @p1 AS id) AS s ON t.id = s.id
WHEN MATCHED THEN UPDATE SET
	name = @p2, created_at = @p3, schema_json = @p4,
	rows_json = @p5, fields_json = @p6, row_count = @p7, column_count = @p8
WHEN NOT MATCHED THEN INSERT
	(id, name, created_at, schema_json, rows_json, fields_json, row_count, column_count)
	VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8);`,
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
		schemaJSON string
		rowsJSON   string
		fieldsJSON string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, schema_json, rows_json, fields_json FROM datasets WHERE id = @p1`,
		id,
	).Scan(&d.ID, &d.Name, &d.CreatedAt, &schemaJSON, &rowsJSON, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
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
		var info storage.Info
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt, &info.Rows, &info.Columns); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = @p1`, id)
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
