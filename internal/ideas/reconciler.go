package ideas

import (
	"context"

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/logging"
)

var log = logging.Get()

// Store is the local persistence used as a fallback data source.
// One logical key holds the whole serialized collection.
type Store interface {
	SaveCollection(ctx context.Context, col []Idea) error
	LoadCollection(ctx context.Context) ([]Idea, error)
}

// Reconciler merges finalized ideas into the caller's collection and keeps
// the local cache in sync. It does not own the collection's lifecycle.
type Reconciler struct {
	store Store
}

// NewReconciler creates a reconciler backed by the given store.
// A nil store disables persistence (in-memory only mode).
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// MergeOne merges an idea into the collection and persists the result.
func (r *Reconciler) MergeOne(ctx context.Context, idea Idea, col Collection) Collection {
	merged := MergeOne(idea, col)
	r.Persist(ctx, merged)
	return merged
}

// MergeMany merges a batch of ideas into the collection and persists the result.
func (r *Reconciler) MergeMany(ctx context.Context, incoming []Idea, col Collection) Collection {
	merged := MergeMany(incoming, col)
	r.Persist(ctx, merged)
	return merged
}

// Persist writes the full collection to the local cache, overwriting prior
// content. Persistence failures are logged, never surfaced: the system keeps
// functioning in-memory only.
func (r *Reconciler) Persist(ctx context.Context, col Collection) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveCollection(ctx, col); err != nil {
		log.Error("Failed to persist idea collection (%d ideas): %v", len(col), err)
	}
}

// LoadFallback returns the last persisted collection, or an empty collection
// if none exists or the cache is unreadable. Callers must treat the result
// as possibly stale.
func (r *Reconciler) LoadFallback(ctx context.Context) Collection {
	if r.store == nil {
		return Collection{}
	}
	col, err := r.store.LoadCollection(ctx)
	if err != nil {
		log.Error("Failed to load cached idea collection: %v", err)
		return Collection{}
	}
	if col == nil {
		return Collection{}
	}
	return col
}
