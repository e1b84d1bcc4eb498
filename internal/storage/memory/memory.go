// Package memory provides an in-process storage backend.
//
// Nothing survives a restart. It exists for tests and for running the
// service without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"tablecast/internal/storage"
)

type Repo struct {
	mu   sync.RWMutex
	data map[string]*storage.Dataset
}

func init() {
	storage.Register("memory", New)
}

func New(_ context.Context, _ storage.Config) (storage.Repository, error) {
	return &Repo{data: map[string]*storage.Dataset{}}, nil
}

func (r *Repo) Close() {}

func (r *Repo) Save(_ context.Context, d *storage.Dataset) error {
	// Round-trip through the shared codec so callers see the same value
	// types they would get from a SQL backend.
	schemaJSON, rowsJSON, fieldsJSON, err := storage.MarshalParts(d)
	if err != nil {
		return err
	}
	stored := &storage.Dataset{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt}
	if err := storage.UnmarshalParts(stored, schemaJSON, rowsJSON, fieldsJSON); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[d.ID] = stored
	return nil
}

func (r *Repo) Get(_ context.Context, id string) (*storage.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *Repo) List(_ context.Context) ([]storage.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]storage.Info, 0, len(r.data))
	for _, d := range r.data {
		out = append(out, storage.Info{
			ID:        d.ID,
			Name:      d.Name,
			CreatedAt: d.CreatedAt,
			Rows:      len(d.Rows),
			Columns:   d.Schema.Len(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.data, id)
	return nil
}
