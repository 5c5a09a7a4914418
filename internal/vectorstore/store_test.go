package vectorstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdeust/ai-prd-codeindex/internal/sqlitedb"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", sqlitedb.DSN(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupStore(t *testing.T, dimension, schemaVersion int) *SQLiteStore {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, CreateSchema(db, dimension))
	return NewSQLiteStore(db, dimension, schemaVersion)
}

func vec(first float32, rest ...float32) []float32 {
	return append([]float32{first}, rest...)
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, CreateSchema(db, 4))
	require.NoError(t, CreateSchema(db, 4))

	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='chunks_vec'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "chunks_vec", name)
}

func TestSaveManyThenSearchReturnsNearest(t *testing.T) {
	store := setupStore(t, 2, 1)
	ctx := context.Background()

	err := store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "a", ProjectID: "proj-1", Vector: vec(1, 0), SchemaVersion: 1},
		{ChunkID: "b", ProjectID: "proj-1", Vector: vec(0, 1), SchemaVersion: 1},
		{ChunkID: "c", ProjectID: "proj-1", Vector: vec(-1, 0), SchemaVersion: 1},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "proj-1", vec(1, 0), 3, -1)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "c", results[2].ChunkID)
	assert.InDelta(t, -1.0, results[2].Similarity, 1e-6)
}

func TestSearchFiltersByProject(t *testing.T) {
	store := setupStore(t, 2, 1)
	ctx := context.Background()

	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "a", ProjectID: "proj-1", Vector: vec(1, 0), SchemaVersion: 1},
	}))
	require.NoError(t, store.SaveMany(ctx, "proj-2", []Embedding{
		{ChunkID: "b", ProjectID: "proj-2", Vector: vec(1, 0), SchemaVersion: 1},
	}))

	results, err := store.Search(ctx, "proj-1", vec(1, 0), 10, -1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestSearchFiltersBySchemaVersion(t *testing.T) {
	store := setupStore(t, 2, 2)
	ctx := context.Background()

	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "stale", ProjectID: "proj-1", Vector: vec(1, 0), SchemaVersion: 1},
	}))

	results, err := store.Search(ctx, "proj-1", vec(1, 0), 10, -1)
	require.NoError(t, err)
	assert.Empty(t, results, "embeddings at an old schema version must not be returned")
}

func TestSearchRespectsThreshold(t *testing.T) {
	store := setupStore(t, 2, 1)
	ctx := context.Background()

	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "close", ProjectID: "proj-1", Vector: vec(1, 0), SchemaVersion: 1},
		{ChunkID: "far", ProjectID: "proj-1", Vector: vec(-1, 0), SchemaVersion: 1},
	}))

	results, err := store.Search(ctx, "proj-1", vec(1, 0), 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "close", results[0].ChunkID)
}

func TestSearchRespectsK(t *testing.T) {
	store := setupStore(t, 1, 1)
	ctx := context.Background()

	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "a", ProjectID: "proj-1", Vector: vec(1), SchemaVersion: 1},
		{ChunkID: "b", ProjectID: "proj-1", Vector: vec(1), SchemaVersion: 1},
		{ChunkID: "c", ProjectID: "proj-1", Vector: vec(1), SchemaVersion: 1},
	}))

	results, err := store.Search(ctx, "proj-1", vec(1), 2, -1)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchTiesBrokenByChunkIDAscending(t *testing.T) {
	store := setupStore(t, 1, 1)
	ctx := context.Background()

	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "zeta", ProjectID: "proj-1", Vector: vec(1), SchemaVersion: 1},
		{ChunkID: "alpha", ProjectID: "proj-1", Vector: vec(1), SchemaVersion: 1},
		{ChunkID: "mu", ProjectID: "proj-1", Vector: vec(1), SchemaVersion: 1},
	}))

	results, err := store.Search(ctx, "proj-1", vec(1), 10, -1)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, []string{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
}

func TestSaveManyUpsertsByChunkID(t *testing.T) {
	store := setupStore(t, 2, 1)
	ctx := context.Background()

	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "a", ProjectID: "proj-1", Vector: vec(1, 0), SchemaVersion: 1},
	}))
	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "a", ProjectID: "proj-1", Vector: vec(0, 1), SchemaVersion: 1},
	}))

	results, err := store.Search(ctx, "proj-1", vec(0, 1), 10, -1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestSaveManyRejectsDimensionMismatch(t *testing.T) {
	store := setupStore(t, 3, 1)
	err := store.SaveMany(context.Background(), "proj-1", []Embedding{
		{ChunkID: "a", ProjectID: "proj-1", Vector: vec(1, 0), SchemaVersion: 1},
	})
	require.Error(t, err)
}

func TestSaveManyEmptyIsNoop(t *testing.T) {
	store := setupStore(t, 2, 1)
	require.NoError(t, store.SaveMany(context.Background(), "proj-1", nil))
}

func TestDeleteByChunkIDsRemovesVectors(t *testing.T) {
	store := setupStore(t, 2, 1)
	ctx := context.Background()

	require.NoError(t, store.SaveMany(ctx, "proj-1", []Embedding{
		{ChunkID: "a", ProjectID: "proj-1", Vector: vec(1, 0), SchemaVersion: 1},
		{ChunkID: "b", ProjectID: "proj-1", Vector: vec(0, 1), SchemaVersion: 1},
	}))

	require.NoError(t, store.DeleteByChunkIDs(ctx, []string{"a"}))

	results, err := store.Search(ctx, "proj-1", vec(1, 0), 10, -1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)
}
