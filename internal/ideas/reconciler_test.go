package ideas

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	saved   []Idea
	saveErr error
	loadErr error
}

func (m *memStore) SaveCollection(_ context.Context, col []Idea) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append([]Idea(nil), col...)
	return nil
}

func (m *memStore) LoadCollection(_ context.Context) ([]Idea, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.saved, nil
}

func TestReconcilerMergePersists(t *testing.T) {
	store := &memStore{}
	r := NewReconciler(store)
	ctx := context.Background()

	col := r.MergeOne(ctx, idea("1", "first"), Collection{})
	require.Len(t, col, 1)
	require.Len(t, store.saved, 1)

	col = r.MergeMany(ctx, []Idea{idea("2", "a"), idea("3", "b")}, col)
	require.Len(t, col, 3)
	assert.Equal(t, "2", store.saved[0].ID)
}

func TestReconcilerPersistFailureIsSwallowed(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	r := NewReconciler(store)

	// Merge still succeeds in memory when persistence fails.
	col := r.MergeOne(context.Background(), idea("1", "first"), Collection{})
	require.Len(t, col, 1)
}

func TestReconcilerLoadFallback(t *testing.T) {
	store := &memStore{}
	r := NewReconciler(store)
	ctx := context.Background()

	assert.Empty(t, r.LoadFallback(ctx))

	r.MergeOne(ctx, idea("1", "first"), Collection{})
	got := r.LoadFallback(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	store.loadErr = errors.New("corrupt cache")
	assert.Empty(t, r.LoadFallback(ctx))
}

func TestReconcilerNilStore(t *testing.T) {
	r := NewReconciler(nil)
	ctx := context.Background()

	col := r.MergeOne(ctx, idea("1", "first"), Collection{})
	require.Len(t, col, 1)
	assert.Empty(t, r.LoadFallback(ctx))
}
