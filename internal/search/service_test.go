package search

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdeust/ai-prd-codeindex/internal/chunk"
	"github.com/cdeust/ai-prd-codeindex/internal/embed"
	"github.com/cdeust/ai-prd-codeindex/internal/hashutil"
	"github.com/cdeust/ai-prd-codeindex/internal/indexing"
	"github.com/cdeust/ai-prd-codeindex/internal/repository"
	"github.com/cdeust/ai-prd-codeindex/internal/sqlitedb"
	"github.com/cdeust/ai-prd-codeindex/internal/vectorstore"
)

const testDimension = 64

const authSource = `package auth

// authenticate verifies a user's password and returns a session token.
func authenticate(user string, password string) string {
	if password == "" {
		return ""
	}
	return "token"
}
`

const chartSource = `package render

// renderChart draws a chart onto the given canvas.
func renderChart(data string) string {
	return "chart"
}
`

func seedIndexedProject(t *testing.T) (repository.Repository, embed.Port, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", sqlitedb.DSN(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.CreateSchema(db))
	require.NoError(t, vectorstore.CreateSchema(db, testDimension))

	vs := vectorstore.NewSQLiteStore(db, testDimension, 1)
	repo := repository.NewSQLiteRepository(db, vs)
	embedder := embed.NewLocal(testDimension)

	ctx := context.Background()
	const projectID = "proj-search"
	require.NoError(t, repo.CreateProject(ctx, repository.Project{
		ID:     projectID,
		URL:    "https://example.com/repo.git",
		Branch: "main",
		Status: repository.StatusPending,
	}))

	orch := indexing.New(repo, chunk.NewRegistry(), embedder, 1, nil)
	files := []indexing.FileInput{
		{Path: "auth.go", Content: []byte(authSource), SHA: hashutil.HashString(authSource), Size: int64(len(authSource))},
		{Path: "render.go", Content: []byte(chartSource), SHA: hashutil.HashString(chartSource), Size: int64(len(chartSource))},
	}
	_, err = orch.Index(ctx, projectID, files, 10)
	require.NoError(t, err)

	return repo, embedder, projectID
}

func TestSearchFilesRanksMostSimilarFileFirst(t *testing.T) {
	repo, embedder, projectID := seedIndexedProject(t)
	svc := New(repo, embedder)

	results, err := svc.SearchFiles(context.Background(), projectID, "user password authentication session", 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "auth.go", results[0].Path)
}

func TestSearchFilesRespectsK(t *testing.T) {
	repo, embedder, projectID := seedIndexedProject(t)
	svc := New(repo, embedder)

	results, err := svc.SearchFiles(context.Background(), projectID, "chart graph plot data", 1, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchFilesZeroKReturnsEmpty(t *testing.T) {
	repo, embedder, projectID := seedIndexedProject(t)
	svc := New(repo, embedder)

	results, err := svc.SearchFiles(context.Background(), projectID, "anything", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEnrichReturnsChunksTechStackAndMarkdown(t *testing.T) {
	repo, embedder, projectID := seedIndexedProject(t)
	svc := New(repo, embedder)

	result, err := svc.Enrich(context.Background(), "add password login and session authentication", projectID, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, "go", result.TechStack.PrimaryLanguage)
	assert.Contains(t, result.ContextMarkdown, "# Codebase Context")
	assert.Contains(t, result.ContextMarkdown, "## Tech Stack")
	assert.Contains(t, result.ContextMarkdown, "## Relevant Code")
}
