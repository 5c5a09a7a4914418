package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

// PRDLinker binds a PRD generation request to the project whose index
// supplied its context, per the thin PRD-linkage requirement.
type PRDLinker interface {
	BindPRD(ctx context.Context, prdRequestID, projectID string) error
	ProjectForPRD(ctx context.Context, prdRequestID string) (string, error)
}

type sqlitePRDLinker struct {
	db *sql.DB
}

func (s *sqlitePRDLinker) BindPRD(ctx context.Context, prdRequestID, projectID string) error {
	_, err := sq.Insert("prd_links").
		Columns("prd_request_id", "project_id").
		Values(prdRequestID, projectID).
		Suffix("ON CONFLICT (prd_request_id) DO UPDATE SET project_id = excluded.project_id").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("bind prd %s to project %s", prdRequestID, projectID), err)
	}
	return nil
}

func (s *sqlitePRDLinker) ProjectForPRD(ctx context.Context, prdRequestID string) (string, error) {
	var projectID string
	err := sq.Select("project_id").
		From("prd_links").
		Where(sq.Eq{"prd_request_id": prdRequestID}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&projectID)
	if err == sql.ErrNoRows {
		return "", codeerr.NotFound("prd_link", prdRequestID)
	}
	if err != nil {
		return "", codeerr.Persistence("find prd link", err)
	}
	return projectID, nil
}
