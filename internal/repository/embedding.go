package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
	"github.com/cdeust/ai-prd-codeindex/internal/vectorstore"
)

// EmbeddingStore is the embeddings slice of the repository contract: batch save
// delegates to VectorStore, and search adds chunk hydration on top of
// the store's raw (chunk_id, similarity) hits.
type EmbeddingStore interface {
	SaveEmbeddings(ctx context.Context, projectID string, embeddings []vectorstore.Embedding) error
	SearchEmbeddings(ctx context.Context, projectID string, query []float32, k int, threshold float64) ([]HydratedResult, error)
	DeleteEmbeddings(ctx context.Context, chunkIDs []string) error
}

type sqliteEmbeddingStore struct {
	vectors vectorstore.Store
	chunks  *sqliteChunkStore
}

func (s *sqliteEmbeddingStore) SaveEmbeddings(ctx context.Context, projectID string, embeddings []vectorstore.Embedding) error {
	return s.vectors.SaveMany(ctx, projectID, embeddings)
}

// DeleteEmbeddings removes vectors for chunkIDs. The chunks_vec and
// chunk_vec_meta tables carry no foreign key to the chunks table, so
// this must be called explicitly whenever chunk rows are deleted.
func (s *sqliteEmbeddingStore) DeleteEmbeddings(ctx context.Context, chunkIDs []string) error {
	return s.vectors.DeleteByChunkIDs(ctx, chunkIDs)
}

// SearchEmbeddings finds the top-k similar chunks and hydrates each hit
// with its full chunk row. A chunk present in the vector store but
// missing from the chunks table (a consistency gap the orchestrator
// should never let happen) is surfaced as a persistence error rather
// than silently dropped.
func (s *sqliteEmbeddingStore) SearchEmbeddings(ctx context.Context, projectID string, query []float32, k int, threshold float64) ([]HydratedResult, error) {
	hits, err := s.vectors.Search(ctx, projectID, query, k, threshold)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	simByID := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
		simByID[h.ChunkID] = h.Similarity
	}

	rows, err := sq.Select(chunkColumns...).
		From("chunks").
		Where(sq.Eq{"chunk_id": ids}).
		RunWith(s.chunks.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence("hydrate search hits", err)
	}
	defer rows.Close()

	chunksByID := make(map[string]Chunk, len(hits))
	scanned, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	for _, c := range scanned {
		chunksByID[c.ID] = c
	}

	out := make([]HydratedResult, 0, len(hits))
	for _, h := range hits {
		c, ok := chunksByID[h.ChunkID]
		if !ok {
			return nil, codeerr.Persistence(fmt.Sprintf("chunk %s indexed in vector store but missing from chunks table", h.ChunkID), nil)
		}
		out = append(out, HydratedResult{Chunk: c, Similarity: simByID[h.ChunkID]})
	}
	return out, nil
}
