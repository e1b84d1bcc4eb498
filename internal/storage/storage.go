// Package storage persists uploaded datasets together with their inferred
// schema and generated filter fields.
//
// Backends register themselves under a kind string from an init() function;
// callers construct a Repository through New without importing backend
// packages directly.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tablecast/internal/filterfield"
	"tablecast/internal/schema"
	"tablecast/pkg/records"
)

// ErrNotFound is returned by Get and Delete when no dataset exists with the
// requested id.
var ErrNotFound = errors.New("storage: dataset not found")

// Dataset is the unit of persistence: the raw rows plus everything derived
// from them at upload time.
type Dataset struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Schema    schema.TableSchema
	Rows      []records.Record
	Fields    []filterfield.Field
}

// Info is the lightweight listing view of a stored dataset.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
}

// Repository is the backend-agnostic persistence interface.
//
// IMPORTANT: This interface is intentionally minimal and focused on the
// operations the dataset service needs. Each backend implements these
// semantics in its own idiomatic way (Postgres ON CONFLICT, SQLite
// INSERT OR REPLACE, MSSQL MERGE).
type Repository interface {
	// Save stores the dataset, overwriting any existing dataset with the same ID.
	Save(ctx context.Context, d *Dataset) error

	// Get loads a dataset by id.
	//
	// Errors:
	//   - Returns ErrNotFound when no dataset has the given id.
	Get(ctx context.Context, id string) (*Dataset, error)

	// List returns a summary of every stored dataset, newest first.
	List(ctx context.Context) ([]Info, error)

	// Delete removes a dataset by id.
	//
	// Errors:
	//   - Returns ErrNotFound when no dataset has the given id.
	Delete(ctx context.Context, id string) error

	// Close releases any backend resources (connections, prepared statements, etc).
	//
	// Edge cases:
	//   - Implementations should be safe to call once at process shutdown.
	//   - Callers should treat Close as "call once".
	Close()
}

// Config is the minimal configuration needed to create a Repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//   - The `kind` string becomes the lookup key used by New.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional to fail fast and
//     avoid ambiguous backend selection.
func Register(kind string, f factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Concurrency:
//   - Safe for concurrent use with Register. New takes a read lock while
//     selecting the factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing storage.Kind")
	}

	regMu.RLock()
	f := factories[cfg.Kind]
	regMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
