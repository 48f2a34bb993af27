package bleve

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/askmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "knowledge.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_IndexAndQuery(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Index(core.Record{
		ID:     "r1",
		Source: "wiki",
		Date:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Fields: map[string]any{"title": "solar panel maintenance"},
	}))
	require.NoError(t, store.Index(core.Record{
		ID:     "r2",
		Source: "wiki",
		Date:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Fields: map[string]any{"title": "wind turbine siting"},
	}))

	records, err := store.Query(context.Background(), "solar maintenance")
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "wiki", records[0].Source)
}

func TestStore_IndexRequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Index(core.Record{Source: "wiki"}))
}

func TestStore_DescribeSchema(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Index(core.Record{ID: "r1", Source: "wiki"}))

	schema, err := store.DescribeSchema(context.Background())
	require.NoError(t, err)
	assert.Contains(t, schema, "1 documents")
	assert.Contains(t, schema, "content (analyzed text)")
}
