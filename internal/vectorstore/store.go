// Package vectorstore persists chunk embeddings and answers cosine
// similarity queries, backed by sqlite-vec's vec0 virtual tables.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

func init() {
	sqlite_vec.Auto()
}

// Embedding is a single chunk's vector plus the identity and schema
// metadata needed for project-scoped, version-gated search.
type Embedding struct {
	ChunkID       string
	ProjectID     string
	Vector        []float32
	SchemaVersion int
}

// Result is one hit from Search, ordered by similarity descending.
type Result struct {
	ChunkID    string
	Similarity float64
}

// Store is the vector store's public contract.
type Store interface {
	SaveMany(ctx context.Context, projectID string, embeddings []Embedding) error
	Search(ctx context.Context, projectID string, query []float32, k int, threshold float64) ([]Result, error)
	DeleteByChunkIDs(ctx context.Context, chunkIDs []string) error
}

// SQLiteStore implements Store over a *sql.DB with sqlite-vec loaded.
// currentSchemaVersion gates search: embeddings saved under an older
// schema version are invisible to Search until re-embedded.
type SQLiteStore struct {
	db                   *sql.DB
	dimension            int
	currentSchemaVersion int
}

// NewSQLiteStore wraps db. CreateSchema must have been called for this
// dimension before use.
func NewSQLiteStore(db *sql.DB, dimension, currentSchemaVersion int) *SQLiteStore {
	return &SQLiteStore{db: db, dimension: dimension, currentSchemaVersion: currentSchemaVersion}
}

// CreateSchema creates the vec0 virtual table sized for dimension and
// its companion metadata table (project/schema-version columns that
// vec0 itself does not carry).
func CreateSchema(db *sql.DB, dimension int) error {
	vecSQL := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(
		chunk_id TEXT PRIMARY KEY,
		embedding float[%d]
	)`, dimension)
	if _, err := db.Exec(vecSQL); err != nil {
		return fmt.Errorf("create chunks_vec: %w", err)
	}

	metaSQL := `CREATE TABLE IF NOT EXISTS chunk_vec_meta (
		chunk_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		schema_version INTEGER NOT NULL
	)`
	if _, err := db.Exec(metaSQL); err != nil {
		return fmt.Errorf("create chunk_vec_meta: %w", err)
	}

	idxSQL := `CREATE INDEX IF NOT EXISTS idx_chunk_vec_meta_project ON chunk_vec_meta (project_id, schema_version)`
	if _, err := db.Exec(idxSQL); err != nil {
		return fmt.Errorf("create chunk_vec_meta index: %w", err)
	}
	return nil
}

// SaveMany upserts embeddings by chunk id, atomically as one batch.
// vec0 tables don't support INSERT OR REPLACE, so each row is deleted
// then reinserted within the same transaction.
func (s *SQLiteStore) SaveMany(ctx context.Context, projectID string, embeddings []Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin embedding batch", err)
	}
	defer tx.Rollback()

	deleteVec, err := tx.PrepareContext(ctx, "DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return codeerr.Persistence("prepare vector delete", err)
	}
	defer deleteVec.Close()

	insertVec, err := tx.PrepareContext(ctx, "INSERT INTO chunks_vec (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return codeerr.Persistence("prepare vector insert", err)
	}
	defer insertVec.Close()

	upsertMeta, err := tx.PrepareContext(ctx, `INSERT INTO chunk_vec_meta (chunk_id, project_id, schema_version)
		VALUES (?, ?, ?)
		ON CONFLICT (chunk_id) DO UPDATE SET project_id = excluded.project_id, schema_version = excluded.schema_version`)
	if err != nil {
		return codeerr.Persistence("prepare meta upsert", err)
	}
	defer upsertMeta.Close()

	for _, e := range embeddings {
		if len(e.Vector) != s.dimension {
			return codeerr.InvalidInput(fmt.Sprintf("embedding for chunk %s has dimension %d, expected %d", e.ChunkID, len(e.Vector), s.dimension))
		}
		if _, err := deleteVec.ExecContext(ctx, e.ChunkID); err != nil {
			return codeerr.Persistence(fmt.Sprintf("delete vector for chunk %s", e.ChunkID), err)
		}
		raw, err := sqlite_vec.SerializeFloat32(e.Vector)
		if err != nil {
			return codeerr.Persistence(fmt.Sprintf("serialize vector for chunk %s", e.ChunkID), err)
		}
		if _, err := insertVec.ExecContext(ctx, e.ChunkID, raw); err != nil {
			return codeerr.Persistence(fmt.Sprintf("insert vector for chunk %s", e.ChunkID), err)
		}
		if _, err := upsertMeta.ExecContext(ctx, e.ChunkID, projectID, e.SchemaVersion); err != nil {
			return codeerr.Persistence(fmt.Sprintf("upsert metadata for chunk %s", e.ChunkID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return codeerr.Persistence("commit embedding batch", err)
	}
	return nil
}

// Search returns the top-k most similar chunks to query within
// projectID, restricted to embeddings at the store's current schema
// version, similarity descending, ties broken by chunk id ascending.
func (s *SQLiteStore) Search(ctx context.Context, projectID string, query []float32, k int, threshold float64) ([]Result, error) {
	if len(query) != s.dimension {
		return nil, codeerr.InvalidInput(fmt.Sprintf("query vector has dimension %d, expected %d", len(query), s.dimension))
	}
	if k <= 0 {
		return nil, codeerr.InvalidInput("k must be positive")
	}

	raw, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, vec_distance_cosine(v.embedding, ?) AS distance
		FROM chunks_vec v
		JOIN chunk_vec_meta m ON m.chunk_id = v.chunk_id
		WHERE m.project_id = ? AND m.schema_version = ?
		ORDER BY distance ASC, v.chunk_id ASC
		LIMIT ?
	`, raw, projectID, s.currentSchemaVersion, k)
	if err != nil {
		return nil, codeerr.Persistence("vector similarity query", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var chunkID string
		var distance float64
		if err := rows.Scan(&chunkID, &distance); err != nil {
			return nil, codeerr.Persistence("scan vector result", err)
		}
		similarity := 1 - distance
		if similarity < threshold {
			continue
		}
		results = append(results, Result{ChunkID: chunkID, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, codeerr.Persistence("iterate vector results", err)
	}

	// SQL ordering already guarantees this, but an explicit stable sort
	// documents the invariant and protects against distance ties that
	// floating point rounding moved out of order across driver versions.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results, nil
}

// DeleteByChunkIDs removes vectors and metadata for the given chunk
// ids, used when files are deleted or re-chunked during incremental
// indexing.
func (s *SQLiteStore) DeleteByChunkIDs(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin vector delete", err)
	}
	defer tx.Rollback()

	deleteVec, err := tx.PrepareContext(ctx, "DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return codeerr.Persistence("prepare vector delete", err)
	}
	defer deleteVec.Close()
	deleteMeta, err := tx.PrepareContext(ctx, "DELETE FROM chunk_vec_meta WHERE chunk_id = ?")
	if err != nil {
		return codeerr.Persistence("prepare meta delete", err)
	}
	defer deleteMeta.Close()

	for _, id := range chunkIDs {
		if _, err := deleteVec.ExecContext(ctx, id); err != nil {
			return codeerr.Persistence(fmt.Sprintf("delete vector %s", id), err)
		}
		if _, err := deleteMeta.ExecContext(ctx, id); err != nil {
			return codeerr.Persistence(fmt.Sprintf("delete vector metadata %s", id), err)
		}
	}
	return tx.Commit()
}
