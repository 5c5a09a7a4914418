package repository

import (
	"database/sql"

	"github.com/cdeust/ai-prd-codeindex/internal/vectorstore"
)

// Repository composes the capability-segregated stores into the full
// public contract. Callers that only need one slice (e.g. the search
// service only needs EmbeddingStore) should depend on that narrower
// interface instead of Repository.
type Repository interface {
	ProjectStore
	FileStore
	ChunkStore
	EmbeddingStore
	MerkleStore
	PRDLinker
}

type sqliteRepository struct {
	*sqliteProjectStore
	*sqliteFileStore
	*sqliteChunkStore
	*sqliteEmbeddingStore
	*sqliteMerkleStore
	*sqlitePRDLinker
}

// NewSQLiteRepository wires one Repository over db and vectors. Callers
// must have already run CreateSchema(db) and vectorstore.CreateSchema(db, dim).
func NewSQLiteRepository(db *sql.DB, vectors vectorstore.Store) Repository {
	chunks := &sqliteChunkStore{db: db}
	return &sqliteRepository{
		sqliteProjectStore:   &sqliteProjectStore{db: db},
		sqliteFileStore:      &sqliteFileStore{db: db},
		sqliteChunkStore:     chunks,
		sqliteEmbeddingStore: &sqliteEmbeddingStore{vectors: vectors, chunks: chunks},
		sqliteMerkleStore:    &sqliteMerkleStore{db: db},
		sqlitePRDLinker:      &sqlitePRDLinker{db: db},
	}
}
