package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
	"github.com/cdeust/ai-prd-codeindex/internal/merkle"
	"github.com/cdeust/ai-prd-codeindex/internal/sqlitedb"
	"github.com/cdeust/ai-prd-codeindex/internal/vectorstore"
)

func newTestRepository(t *testing.T, dimension int) (Repository, *sql.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", sqlitedb.DSN(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateSchema(db))
	require.NoError(t, vectorstore.CreateSchema(db, dimension))

	vs := vectorstore.NewSQLiteStore(db, dimension, 1)
	return NewSQLiteRepository(db, vs), db
}

func TestProjectCRUD(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()

	p := Project{ID: "proj-1", URL: "https://example.com/repo.git", Branch: "main"}
	require.NoError(t, repo.CreateProject(ctx, p))

	found, err := repo.FindProjectByID(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, p.URL, found.URL)
	assert.Equal(t, p.Branch, found.Branch)

	byURLBranch, err := repo.FindProjectByURLBranch(ctx, p.URL, p.Branch)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byURLBranch.ID)

	p.Branch = "develop"
	require.NoError(t, repo.UpdateProject(ctx, p))
	updated, err := repo.FindProjectByID(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "develop", updated.Branch)

	require.NoError(t, repo.DeleteProject(ctx, "proj-1"))
	_, err = repo.FindProjectByID(ctx, "proj-1")
	require.Error(t, err)
	kind, ok := codeerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, codeerr.KindNotFound, kind)
}

func TestListProjectsPaginates(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateProject(ctx, Project{ID: string(rune('a' + i)), URL: "u", Branch: string(rune('a' + i))}))
	}

	page1, err := repo.ListProjects(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := repo.ListProjects(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
}

func TestDeleteProjectCascadesToFilesAndChunks(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()

	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))
	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ProjectID: "p1", Path: "a.go", Hash: "h1", Size: 10}}))
	require.NoError(t, repo.SaveChunks(ctx, "p1", []Chunk{{ID: "c1", ProjectID: "p1", FilePath: "a.go", ChunkType: "function", Symbol: "F", Content: "func F(){}", StartLine: 1, EndLine: 1}}))

	require.NoError(t, repo.DeleteProject(ctx, "p1"))

	files, err := repo.ListFilesByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, files)

	chunks, err := repo.ListChunksByProject(ctx, "p1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestFileSaveUpsertAndParsedFlag(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))

	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ProjectID: "p1", Path: "a.go", Hash: "h1", Size: 10}}))
	require.NoError(t, repo.UpdateFileParseResult(ctx, "p1", "a.go", true, ""))

	f, err := repo.FindFile(ctx, "p1", "a.go")
	require.NoError(t, err)
	assert.True(t, f.Parsed)

	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ProjectID: "p1", Path: "a.go", Hash: "h2", Size: 20}}))
	f, err = repo.FindFile(ctx, "p1", "a.go")
	require.NoError(t, err)
	assert.Equal(t, "h2", f.Hash)
	assert.False(t, f.Parsed, "re-saving a file resets the parsed flag for re-chunking")
}

func TestChunkSaveAndListByFileAndImports(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))
	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ProjectID: "p1", Path: "a.go", Hash: "h1"}}))

	require.NoError(t, repo.SaveChunks(ctx, "p1", []Chunk{
		{ID: "c1", ProjectID: "p1", FilePath: "a.go", ChunkType: "function", Symbol: "F", Content: "func F(){}", StartLine: 1, EndLine: 1, Imports: []string{"fmt", "os"}},
	}))

	chunks, err := repo.ListChunksByFile(ctx, "p1", "a.go")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"fmt", "os"}, chunks[0].Imports)
}

func TestDeleteChunksByProjectUsedForFullReindex(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))
	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ProjectID: "p1", Path: "a.go", Hash: "h1"}}))
	require.NoError(t, repo.SaveChunks(ctx, "p1", []Chunk{{ID: "c1", ProjectID: "p1", FilePath: "a.go", ChunkType: "function", Symbol: "F", Content: "x", StartLine: 1, EndLine: 1}}))

	require.NoError(t, repo.DeleteChunksByProject(ctx, "p1"))

	chunks, err := repo.ListChunksByProject(ctx, "p1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestEmbeddingSaveAndSearchHydratesChunks(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))
	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ProjectID: "p1", Path: "a.go", Hash: "h1"}}))
	require.NoError(t, repo.SaveChunks(ctx, "p1", []Chunk{{ID: "c1", ProjectID: "p1", FilePath: "a.go", ChunkType: "function", Symbol: "F", Content: "func F(){}", StartLine: 1, EndLine: 1}}))

	require.NoError(t, repo.SaveEmbeddings(ctx, "p1", []vectorstore.Embedding{
		{ChunkID: "c1", ProjectID: "p1", Vector: []float32{1, 0}, SchemaVersion: 1},
	}))

	results, err := repo.SearchEmbeddings(ctx, "p1", []float32{1, 0}, 5, -1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "F", results[0].Chunk.Symbol)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestMerkleSaveAndLoadRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))

	tree := merkle.Build([]merkle.FileLeaf{{Path: "a.go", Hash: "h1"}, {Path: "b.go", Hash: "h2"}})
	require.NoError(t, repo.SaveMerkleNodes(ctx, "p1", tree.Nodes))
	require.NoError(t, repo.SaveMerkleRoot(ctx, "p1", tree.Root))

	root, err := repo.LoadMerkleRoot(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, tree.Root, root)

	loaded, err := repo.LoadMerkleNodes(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, len(tree.Nodes), len(loaded))
	assert.Equal(t, tree.Nodes[tree.RootPath].IsLeaf, loaded[tree.RootPath].IsLeaf)

	reconstructed := merkle.FromNodes(loaded)
	assert.Equal(t, tree.Root, reconstructed.Root)
	assert.Equal(t, tree.RootPath, reconstructed.RootPath)
}

func TestLoadMerkleRootEmptyForNewProject(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	root, err := repo.LoadMerkleRoot(context.Background(), "missing-project")
	require.NoError(t, err)
	assert.Empty(t, root)
}

func TestPRDLinkBindAndLookup(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))

	require.NoError(t, repo.BindPRD(ctx, "prd-1", "p1"))
	projectID, err := repo.ProjectForPRD(ctx, "prd-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", projectID)
}

func TestPRDLinkLookupUnknownIsNotFound(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	_, err := repo.ProjectForPRD(context.Background(), "unknown")
	require.Error(t, err)
	kind, ok := codeerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, codeerr.KindNotFound, kind)
}

func TestProjectStatusAndProgressRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	p := Project{ID: "p1", URL: "u", Branch: "main", SourceSystem: SourceHostedGitA, Status: StatusPending}
	require.NoError(t, repo.CreateProject(ctx, p))

	found, err := repo.FindProjectByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, found.Status)
	assert.Equal(t, SourceHostedGitA, found.SourceSystem)

	found.Status = StatusIndexing
	found.Progress = 40
	found.TotalFiles = 10
	require.NoError(t, repo.UpdateProject(ctx, found))

	reloaded, err := repo.FindProjectByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusIndexing, reloaded.Status)
	assert.Equal(t, 40, reloaded.Progress)
	assert.Equal(t, 10, reloaded.TotalFiles)
}

func TestProjectLanguagesFrameworksAndPatternsRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))

	require.NoError(t, repo.SaveDetectedLanguages(ctx, "p1", map[string]int64{"go": 1000, "python": 200}))
	require.NoError(t, repo.SaveDetectedFrameworks(ctx, "p1", []string{"gin", "react"}))
	require.NoError(t, repo.SaveArchitecturePatterns(ctx, "p1", []ArchitecturePattern{
		{Name: "hexagonal", Confidence: 0.8, EvidencePaths: []string{"internal/ports/port.go"}},
	}))

	found, err := repo.FindProjectByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), found.DetectedLanguages["go"])
	assert.Equal(t, []string{"gin", "react"}, found.DetectedFrameworks)
	require.Len(t, found.ArchitecturePatterns, 1)
	assert.Equal(t, "hexagonal", found.ArchitecturePatterns[0].Name)
	assert.Equal(t, []string{"internal/ports/port.go"}, found.ArchitecturePatterns[0].EvidencePaths)
}

func TestFileParseErrorRecorded(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))
	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ID: "f1", ProjectID: "p1", Path: "bad.py", Hash: "h1", Language: "python"}}))

	require.NoError(t, repo.UpdateFileParseResult(ctx, "p1", "bad.py", false, "invalid UTF-8 at byte 12"))

	f, err := repo.FindFile(ctx, "p1", "bad.py")
	require.NoError(t, err)
	assert.False(t, f.Parsed)
	assert.Equal(t, "invalid UTF-8 at byte 12", f.ParseError)
}

func TestDeleteChunksByFileReturnsDeletedIDsAndDropsEmbeddings(t *testing.T) {
	repo, _ := newTestRepository(t, 2)
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, Project{ID: "p1", URL: "u", Branch: "main"}))
	require.NoError(t, repo.SaveFiles(ctx, "p1", []File{{ProjectID: "p1", Path: "a.go", Hash: "h1"}}))
	require.NoError(t, repo.SaveChunks(ctx, "p1", []Chunk{
		{ID: "c1", ProjectID: "p1", FileID: "f1", FilePath: "a.go", ChunkType: "function", Symbol: "F", Content: "func F(){}", ContentHash: "ch1", Language: "go", StartLine: 1, EndLine: 1},
	}))
	require.NoError(t, repo.SaveEmbeddings(ctx, "p1", []vectorstore.Embedding{{ChunkID: "c1", ProjectID: "p1", Vector: []float32{1, 0}, SchemaVersion: 1}}))

	ids, err := repo.DeleteChunksByFile(ctx, "p1", "a.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
	require.NoError(t, repo.DeleteEmbeddings(ctx, ids))

	chunks, err := repo.ListChunksByFile(ctx, "p1", "a.go")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	results, err := repo.SearchEmbeddings(ctx, "p1", []float32{1, 0}, 5, -1)
	require.NoError(t, err)
	assert.Empty(t, results)
}
