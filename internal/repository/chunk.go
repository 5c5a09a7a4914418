package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

var chunkColumns = []string{
	"chunk_id", "project_id", "file_id", "file_path", "chunk_type", "symbol",
	"content", "content_hash", "language", "start_line", "end_line", "token_count", "created_at",
}

// ChunkStore is the chunk persistence slice of the repository contract.
type ChunkStore interface {
	SaveChunks(ctx context.Context, projectID string, chunks []Chunk) error
	ListChunksByProject(ctx context.Context, projectID string, offset, limit int) ([]Chunk, error)
	ListChunksByFile(ctx context.Context, projectID, path string) ([]Chunk, error)
	DeleteChunksByProject(ctx context.Context, projectID string) error
	// DeleteChunksByFile removes every chunk rooted at path and returns
	// the deleted chunk ids, so the caller can also drop their
	// embeddings (chunks carry no FK into the vector store).
	DeleteChunksByFile(ctx context.Context, projectID, path string) ([]string, error)
}

type sqliteChunkStore struct {
	db *sql.DB
}

// SaveChunks inserts a batch atomically. Re-saving an existing chunk id
// replaces its row and imports.
func (s *sqliteChunkStore) SaveChunks(ctx context.Context, projectID string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin chunk batch", err)
	}
	defer tx.Rollback()

	upsertChunk, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, project_id, file_id, file_path, chunk_type, symbol, content, content_hash, language, start_line, end_line, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chunk_id) DO UPDATE SET
			file_id = excluded.file_id,
			file_path = excluded.file_path,
			chunk_type = excluded.chunk_type,
			symbol = excluded.symbol,
			content = excluded.content,
			content_hash = excluded.content_hash,
			language = excluded.language,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			token_count = excluded.token_count
	`)
	if err != nil {
		return codeerr.Persistence("prepare chunk upsert", err)
	}
	defer upsertChunk.Close()

	deleteImports, err := tx.PrepareContext(ctx, "DELETE FROM chunk_imports WHERE chunk_id = ?")
	if err != nil {
		return codeerr.Persistence("prepare import delete", err)
	}
	defer deleteImports.Close()

	insertImport, err := tx.PrepareContext(ctx, "INSERT INTO chunk_imports (chunk_id, position, import_text) VALUES (?, ?, ?)")
	if err != nil {
		return codeerr.Persistence("prepare import insert", err)
	}
	defer insertImport.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range chunks {
		createdAt := now
		if !c.CreatedAt.IsZero() {
			createdAt = c.CreatedAt.UTC().Format(time.RFC3339)
		}
		if _, err := upsertChunk.ExecContext(ctx, c.ID, projectID, c.FileID, c.FilePath, c.ChunkType, c.Symbol, c.Content, c.ContentHash, c.Language, c.StartLine, c.EndLine, c.TokenCount, createdAt); err != nil {
			return codeerr.Persistence(fmt.Sprintf("upsert chunk %s", c.ID), err)
		}
		if _, err := deleteImports.ExecContext(ctx, c.ID); err != nil {
			return codeerr.Persistence(fmt.Sprintf("clear imports for chunk %s", c.ID), err)
		}
		for i, imp := range c.Imports {
			if _, err := insertImport.ExecContext(ctx, c.ID, i, imp); err != nil {
				return codeerr.Persistence(fmt.Sprintf("insert import for chunk %s", c.ID), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return codeerr.Persistence("commit chunk batch", err)
	}
	return nil
}

func (s *sqliteChunkStore) ListChunksByProject(ctx context.Context, projectID string, offset, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := sq.Select(chunkColumns...).
		From("chunks").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("chunk_id").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence("list chunks by project", err)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrateImports(ctx, chunks)
}

func (s *sqliteChunkStore) ListChunksByFile(ctx context.Context, projectID, path string) ([]Chunk, error) {
	rows, err := sq.Select(chunkColumns...).
		From("chunks").
		Where(sq.Eq{"project_id": projectID, "file_path": path}).
		OrderBy("start_line").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence("list chunks by file", err)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrateImports(ctx, chunks)
}

// DeleteChunksByProject removes every chunk for projectID, used by the
// orchestrator for a full re-index.
func (s *sqliteChunkStore) DeleteChunksByProject(ctx context.Context, projectID string) error {
	_, err := sq.Delete("chunks").
		Where(sq.Eq{"project_id": projectID}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("delete chunks for project %s", projectID), err)
	}
	return nil
}

func (s *sqliteChunkStore) DeleteChunksByFile(ctx context.Context, projectID, path string) ([]string, error) {
	rows, err := sq.Select("chunk_id").
		From("chunks").
		Where(sq.Eq{"project_id": projectID, "file_path": path}).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence(fmt.Sprintf("list chunk ids for file %s", path), err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, codeerr.Persistence("scan chunk id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, codeerr.Persistence("iterate chunk ids", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}
	_, err = sq.Delete("chunks").
		Where(sq.Eq{"project_id": projectID, "file_path": path}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence(fmt.Sprintf("delete chunks for file %s", path), err)
	}
	return ids, nil
}

func (s *sqliteChunkStore) hydrateImports(ctx context.Context, chunks []Chunk) ([]Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}
	ids := make([]string, len(chunks))
	byID := make(map[string]*Chunk, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
		byID[chunks[i].ID] = &chunks[i]
	}

	rows, err := sq.Select("chunk_id", "import_text").
		From("chunk_imports").
		Where(sq.Eq{"chunk_id": ids}).
		OrderBy("chunk_id", "position").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence("load chunk imports", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunkID, imp string
		if err := rows.Scan(&chunkID, &imp); err != nil {
			return nil, codeerr.Persistence("scan chunk import", err)
		}
		if c, ok := byID[chunkID]; ok {
			c.Imports = append(c.Imports, imp)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, codeerr.Persistence("iterate chunk imports", err)
	}
	return chunks, nil
}

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	var out []Chunk
	for rows.Next() {
		var c Chunk
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.FileID, &c.FilePath, &c.ChunkType, &c.Symbol, &c.Content, &c.ContentHash, &c.Language, &c.StartLine, &c.EndLine, &c.TokenCount, &createdAt); err != nil {
			return nil, codeerr.Persistence("scan chunk row", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, codeerr.Persistence("iterate chunks", err)
	}
	return out, nil
}
