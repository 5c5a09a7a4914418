package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

var projectColumns = []string{
	"project_id", "url", "branch", "source_system", "merkle_root_hash",
	"total_files", "indexed_files", "total_chunks", "embedding_dimension", "status", "progress",
	"last_indexed_at", "created_at", "updated_at",
}

// ProjectStore is the project CRUD slice of the repository contract.
type ProjectStore interface {
	CreateProject(ctx context.Context, p Project) error
	FindProjectByID(ctx context.Context, id string) (Project, error)
	FindProjectByURLBranch(ctx context.Context, url, branch string) (Project, error)
	UpdateProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context, offset, limit int) ([]Project, error)

	SaveDetectedLanguages(ctx context.Context, projectID string, languages map[string]int64) error
	SaveDetectedFrameworks(ctx context.Context, projectID string, frameworks []string) error
	SaveArchitecturePatterns(ctx context.Context, projectID string, patterns []ArchitecturePattern) error
}

type sqliteProjectStore struct {
	db *sql.DB
}

func (s *sqliteProjectStore) CreateProject(ctx context.Context, p Project) error {
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = StatusPending
	}
	_, err := sq.Insert("projects").
		Columns(projectColumns...).
		Values(
			p.ID, p.URL, p.Branch, string(p.SourceSystem), p.MerkleRootHash,
			p.TotalFiles, p.IndexedFiles, p.TotalChunks, p.EmbeddingDimension, string(p.Status), p.Progress,
			formatTimeOrEmpty(p.LastIndexedAt), now.Format(time.RFC3339), now.Format(time.RFC3339),
		).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("create project %s", p.ID), err)
	}
	return nil
}

func (s *sqliteProjectStore) FindProjectByID(ctx context.Context, id string) (Project, error) {
	row := sq.Select(projectColumns...).
		From("projects").
		Where(sq.Eq{"project_id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)
	p, err := scanProject(row, "id", id)
	if err != nil {
		return Project{}, err
	}
	return s.hydrate(ctx, p)
}

func (s *sqliteProjectStore) FindProjectByURLBranch(ctx context.Context, url, branch string) (Project, error) {
	row := sq.Select(projectColumns...).
		From("projects").
		Where(sq.Eq{"url": url, "branch": branch}).
		RunWith(s.db).
		QueryRowContext(ctx)
	p, err := scanProject(row, "url+branch", url+"@"+branch)
	if err != nil {
		return Project{}, err
	}
	return s.hydrate(ctx, p)
}

func (s *sqliteProjectStore) UpdateProject(ctx context.Context, p Project) error {
	res, err := sq.Update("projects").
		Set("url", p.URL).
		Set("branch", p.Branch).
		Set("source_system", string(p.SourceSystem)).
		Set("merkle_root_hash", p.MerkleRootHash).
		Set("total_files", p.TotalFiles).
		Set("indexed_files", p.IndexedFiles).
		Set("total_chunks", p.TotalChunks).
		Set("embedding_dimension", p.EmbeddingDimension).
		Set("status", string(p.Status)).
		Set("progress", p.Progress).
		Set("last_indexed_at", formatTimeOrEmpty(p.LastIndexedAt)).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339)).
		Where(sq.Eq{"project_id": p.ID}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("update project %s", p.ID), err)
	}
	return requireRowsAffected(res, "project", p.ID)
}

// DeleteProject relies on ON DELETE CASCADE across files, chunks,
// chunk_imports, merkle_nodes, and prd_links.
func (s *sqliteProjectStore) DeleteProject(ctx context.Context, id string) error {
	res, err := sq.Delete("projects").
		Where(sq.Eq{"project_id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("delete project %s", id), err)
	}
	return requireRowsAffected(res, "project", id)
}

func (s *sqliteProjectStore) ListProjects(ctx context.Context, offset, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := sq.Select(projectColumns...).
		From("projects").
		OrderBy("project_id").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence("list projects", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		hydrated, err := s.hydrate(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, hydrated)
	}
	return out, rows.Err()
}

// SaveDetectedLanguages replaces the project's language byte-count map.
func (s *sqliteProjectStore) SaveDetectedLanguages(ctx context.Context, projectID string, languages map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin language batch", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM project_languages WHERE project_id = ?", projectID); err != nil {
		return codeerr.Persistence("clear project languages", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO project_languages (project_id, language, byte_count) VALUES (?, ?, ?)")
	if err != nil {
		return codeerr.Persistence("prepare language insert", err)
	}
	defer stmt.Close()
	for lang, bytes := range languages {
		if _, err := stmt.ExecContext(ctx, projectID, lang, bytes); err != nil {
			return codeerr.Persistence(fmt.Sprintf("insert language %s", lang), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return codeerr.Persistence("commit language batch", err)
	}
	return nil
}

// SaveDetectedFrameworks replaces the project's ordered framework list.
func (s *sqliteProjectStore) SaveDetectedFrameworks(ctx context.Context, projectID string, frameworks []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin framework batch", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM project_frameworks WHERE project_id = ?", projectID); err != nil {
		return codeerr.Persistence("clear project frameworks", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO project_frameworks (project_id, position, name) VALUES (?, ?, ?)")
	if err != nil {
		return codeerr.Persistence("prepare framework insert", err)
	}
	defer stmt.Close()
	for i, name := range frameworks {
		if _, err := stmt.ExecContext(ctx, projectID, i, name); err != nil {
			return codeerr.Persistence(fmt.Sprintf("insert framework %s", name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return codeerr.Persistence("commit framework batch", err)
	}
	return nil
}

// SaveArchitecturePatterns replaces the project's detected patterns and
// their evidence paths.
func (s *sqliteProjectStore) SaveArchitecturePatterns(ctx context.Context, projectID string, patterns []ArchitecturePattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin pattern batch", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM project_patterns WHERE project_id = ?", projectID); err != nil {
		return codeerr.Persistence("clear project patterns", err)
	}
	insertPattern, err := tx.PrepareContext(ctx, "INSERT INTO project_patterns (project_id, name, confidence) VALUES (?, ?, ?)")
	if err != nil {
		return codeerr.Persistence("prepare pattern insert", err)
	}
	defer insertPattern.Close()
	insertEvidence, err := tx.PrepareContext(ctx, "INSERT INTO project_pattern_evidence (project_id, pattern_name, position, path) VALUES (?, ?, ?, ?)")
	if err != nil {
		return codeerr.Persistence("prepare pattern evidence insert", err)
	}
	defer insertEvidence.Close()

	for _, pat := range patterns {
		if _, err := insertPattern.ExecContext(ctx, projectID, pat.Name, pat.Confidence); err != nil {
			return codeerr.Persistence(fmt.Sprintf("insert pattern %s", pat.Name), err)
		}
		for i, path := range pat.EvidencePaths {
			if _, err := insertEvidence.ExecContext(ctx, projectID, pat.Name, i, path); err != nil {
				return codeerr.Persistence(fmt.Sprintf("insert evidence for pattern %s", pat.Name), err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return codeerr.Persistence("commit pattern batch", err)
	}
	return nil
}

// hydrate fills p.DetectedLanguages/DetectedFrameworks/ArchitecturePatterns
// from their side tables.
func (s *sqliteProjectStore) hydrate(ctx context.Context, p Project) (Project, error) {
	langRows, err := sq.Select("language", "byte_count").
		From("project_languages").
		Where(sq.Eq{"project_id": p.ID}).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return Project{}, codeerr.Persistence("load project languages", err)
	}
	p.DetectedLanguages = make(map[string]int64)
	for langRows.Next() {
		var lang string
		var bytes int64
		if err := langRows.Scan(&lang, &bytes); err != nil {
			langRows.Close()
			return Project{}, codeerr.Persistence("scan project language", err)
		}
		p.DetectedLanguages[lang] = bytes
	}
	langRows.Close()

	fwRows, err := sq.Select("name").
		From("project_frameworks").
		Where(sq.Eq{"project_id": p.ID}).
		OrderBy("position").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return Project{}, codeerr.Persistence("load project frameworks", err)
	}
	for fwRows.Next() {
		var name string
		if err := fwRows.Scan(&name); err != nil {
			fwRows.Close()
			return Project{}, codeerr.Persistence("scan project framework", err)
		}
		p.DetectedFrameworks = append(p.DetectedFrameworks, name)
	}
	fwRows.Close()

	patRows, err := sq.Select("name", "confidence").
		From("project_patterns").
		Where(sq.Eq{"project_id": p.ID}).
		OrderBy("name").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return Project{}, codeerr.Persistence("load project patterns", err)
	}
	var patterns []ArchitecturePattern
	for patRows.Next() {
		var pat ArchitecturePattern
		if err := patRows.Scan(&pat.Name, &pat.Confidence); err != nil {
			patRows.Close()
			return Project{}, codeerr.Persistence("scan project pattern", err)
		}
		patterns = append(patterns, pat)
	}
	patRows.Close()

	for i := range patterns {
		evRows, err := sq.Select("path").
			From("project_pattern_evidence").
			Where(sq.Eq{"project_id": p.ID, "pattern_name": patterns[i].Name}).
			OrderBy("position").
			RunWith(s.db).
			QueryContext(ctx)
		if err != nil {
			return Project{}, codeerr.Persistence("load pattern evidence", err)
		}
		for evRows.Next() {
			var path string
			if err := evRows.Scan(&path); err != nil {
				evRows.Close()
				return Project{}, codeerr.Persistence("scan pattern evidence", err)
			}
			patterns[i].EvidencePaths = append(patterns[i].EvidencePaths, path)
		}
		evRows.Close()
	}
	p.ArchitecturePatterns = patterns

	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner, lookupKind, lookupID string) (Project, error) {
	var p Project
	var sourceSystem, status, lastIndexed, created, updated string
	err := row.Scan(
		&p.ID, &p.URL, &p.Branch, &sourceSystem, &p.MerkleRootHash,
		&p.TotalFiles, &p.IndexedFiles, &p.TotalChunks, &p.EmbeddingDimension, &status, &p.Progress,
		&lastIndexed, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return Project{}, codeerr.NotFound("project", lookupID)
	}
	if err != nil {
		return Project{}, codeerr.Persistence(fmt.Sprintf("scan project (%s)", lookupKind), err)
	}
	p.SourceSystem = SourceSystem(sourceSystem)
	p.Status = IndexingStatus(status)
	if lastIndexed != "" {
		p.LastIndexedAt, _ = time.Parse(time.RFC3339, lastIndexed)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return p, nil
}

func scanProjectRow(rows *sql.Rows) (Project, error) {
	return scanProject(rows, "row", "")
}

func formatTimeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func requireRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("rows affected for %s %s", kind, id), err)
	}
	if n == 0 {
		return codeerr.NotFound(kind, id)
	}
	return nil
}
