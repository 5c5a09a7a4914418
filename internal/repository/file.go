package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

var fileColumns = []string{"file_id", "project_id", "file_path", "file_hash", "size_bytes", "language", "parsed", "parse_error", "indexed_at"}

// FileStore is the per-file slice of the repository contract.
type FileStore interface {
	SaveFiles(ctx context.Context, projectID string, files []File) error
	AddFile(ctx context.Context, f File) error
	ListFilesByProject(ctx context.Context, projectID string) ([]File, error)
	FindFile(ctx context.Context, projectID, path string) (File, error)
	UpdateFileParseResult(ctx context.Context, projectID, path string, parsed bool, parseError string) error
	DeleteFile(ctx context.Context, projectID, path string) error
}

type sqliteFileStore struct {
	db *sql.DB
}

// SaveFiles upserts a batch atomically, per the per-batch atomicity
// requirement.
func (s *sqliteFileStore) SaveFiles(ctx context.Context, projectID string, files []File) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin file batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (file_id, project_id, file_path, file_hash, size_bytes, language, parsed, parse_error, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, file_path) DO UPDATE SET
			file_id = excluded.file_id,
			file_hash = excluded.file_hash,
			size_bytes = excluded.size_bytes,
			language = excluded.language,
			parsed = excluded.parsed,
			parse_error = excluded.parse_error,
			indexed_at = excluded.indexed_at
	`)
	if err != nil {
		return codeerr.Persistence("prepare file upsert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, f := range files {
		indexedAt := now
		if !f.IndexedAt.IsZero() {
			indexedAt = f.IndexedAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx, f.ID, projectID, f.Path, f.Hash, f.Size, f.Language, boolToInt(f.Parsed), f.ParseError, indexedAt); err != nil {
			return codeerr.Persistence(fmt.Sprintf("upsert file %s", f.Path), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return codeerr.Persistence("commit file batch", err)
	}
	return nil
}

func (s *sqliteFileStore) AddFile(ctx context.Context, f File) error {
	return s.SaveFiles(ctx, f.ProjectID, []File{f})
}

func (s *sqliteFileStore) ListFilesByProject(ctx context.Context, projectID string) ([]File, error) {
	rows, err := sq.Select(fileColumns...).
		From("files").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("file_path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence("list files by project", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *sqliteFileStore) FindFile(ctx context.Context, projectID, path string) (File, error) {
	row := sq.Select(fileColumns...).
		From("files").
		Where(sq.Eq{"project_id": projectID, "file_path": path}).
		RunWith(s.db).
		QueryRowContext(ctx)

	var f File
	var parsed int
	var indexedAt string
	err := row.Scan(&f.ID, &f.ProjectID, &f.Path, &f.Hash, &f.Size, &f.Language, &parsed, &f.ParseError, &indexedAt)
	if err == sql.ErrNoRows {
		return File{}, codeerr.NotFound("file", projectID+":"+path)
	}
	if err != nil {
		return File{}, codeerr.Persistence("scan file", err)
	}
	f.Parsed = parsed != 0
	f.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return f, nil
}

// UpdateFileParseResult records the outcome of step 5's per-file parse
// attempt: parsed=true with an empty parseError on success, or
// parsed=false with a parse_failed reason on failure (the error
// policy: non-fatal, recorded on the file).
func (s *sqliteFileStore) UpdateFileParseResult(ctx context.Context, projectID, path string, parsed bool, parseError string) error {
	res, err := sq.Update("files").
		Set("parsed", boolToInt(parsed)).
		Set("parse_error", parseError).
		Where(sq.Eq{"project_id": projectID, "file_path": path}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence("update file parse result", err)
	}
	return requireRowsAffected(res, "file", projectID+":"+path)
}

// DeleteFile removes a file row, cascading to its chunks and chunk
// imports. It is a no-op, not an error, if the file is already gone.
func (s *sqliteFileStore) DeleteFile(ctx context.Context, projectID, path string) error {
	_, err := sq.Delete("files").
		Where(sq.Eq{"project_id": projectID, "file_path": path}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("delete file %s", path), err)
	}
	return nil
}

func scanFile(rows *sql.Rows) (File, error) {
	var f File
	var parsed int
	var indexedAt string
	if err := rows.Scan(&f.ID, &f.ProjectID, &f.Path, &f.Hash, &f.Size, &f.Language, &parsed, &f.ParseError, &indexedAt); err != nil {
		return File{}, codeerr.Persistence("scan file row", err)
	}
	f.Parsed = parsed != 0
	f.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
