// Package indexing implements the central indexing use case: diff a
// repository's file listing against its last indexed Merkle tree,
// re-chunk and re-embed only what moved, and persist the result.
package indexing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cdeust/ai-prd-codeindex/internal/chunk"
	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
	"github.com/cdeust/ai-prd-codeindex/internal/embed"
	"github.com/cdeust/ai-prd-codeindex/internal/hashutil"
	"github.com/cdeust/ai-prd-codeindex/internal/lang"
	"github.com/cdeust/ai-prd-codeindex/internal/merkle"
	"github.com/cdeust/ai-prd-codeindex/internal/repository"
	"github.com/cdeust/ai-prd-codeindex/internal/vectorstore"
)

// parseConcurrency bounds step 5's parallel parsing task group.
const parseConcurrency = 8

// Orchestrator runs the nine-step indexing algorithm over one project
// at a time. A single instance is safe to call concurrently for
// different projects; concurrent calls for the same project id are
// rejected with already_indexing.
type Orchestrator struct {
	repo     repository.Repository
	parsers  *chunk.Registry
	embedder embed.Port
	logger   *zap.Logger

	schemaVersion int

	mu     sync.Mutex
	active map[string]struct{}
}

// New builds an Orchestrator. schemaVersion must match the
// vectorstore.SQLiteStore's currentSchemaVersion so embeddings this run saves
// are visible to search immediately. A nil logger is replaced with a
// no-op one.
func New(repo repository.Repository, parsers *chunk.Registry, embedder embed.Port, schemaVersion int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		repo:          repo,
		parsers:       parsers,
		embedder:      embedder,
		logger:        logger,
		schemaVersion: schemaVersion,
		active:        make(map[string]struct{}),
	}
}

// Index runs the full algorithm for projectID against files, the
// latest known state of the repository. batchSize <= 0 defaults to 50.
func (o *Orchestrator) Index(ctx context.Context, projectID string, files []FileInput, batchSize int) (Report, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	release, err := o.acquire(projectID)
	if err != nil {
		return Report{}, err
	}
	defer release()

	project, err := o.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return Report{}, err
	}
	project.Status = repository.StatusIndexing
	if err := o.repo.UpdateProject(ctx, project); err != nil {
		return Report{}, err
	}

	log := o.logger.With(zap.String("project_id", projectID))
	log.Info("indexing started", zap.Int("input_files", len(files)))

	report, runErr := o.run(ctx, log, project, files, batchSize)
	if runErr != nil {
		reason := "run failed"
		if kind, ok := codeerr.KindOf(runErr); ok && kind == codeerr.KindCancelled {
			reason = "cancelled"
		}
		o.markFailed(project, reason)
		log.Error("indexing failed", zap.Error(runErr))
		return report, runErr
	}

	log.Info("indexing completed",
		zap.Int("total_files", report.TotalFiles),
		zap.Int("total_chunks", report.TotalChunks),
		zap.Int("total_embeddings", report.TotalEmbeddings),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

func (o *Orchestrator) acquire(projectID string) (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.active[projectID]; ok {
		return nil, codeerr.AlreadyIndexing(projectID)
	}
	o.active[projectID] = struct{}{}
	return func() {
		o.mu.Lock()
		delete(o.active, projectID)
		o.mu.Unlock()
	}, nil
}

// run executes steps 1-9. Any returned error means the run is fatal
// (already handled by Index marking the project failed); non-fatal
// per-file/per-batch problems are recorded in the returned Report
// instead.
func (o *Orchestrator) run(ctx context.Context, log *zap.Logger, project repository.Project, files []FileInput, batchSize int) (Report, error) {
	var report Report

	// Steps 1-2: load the previous tree, build the new one, diff.
	prevNodes, err := o.repo.LoadMerkleNodes(ctx, project.ID)
	if err != nil {
		return report, err
	}
	prevTree := merkle.FromNodes(prevNodes)

	byPath := make(map[string]FileInput, len(files))
	leaves := make([]merkle.FileLeaf, 0, len(files))
	for _, f := range files {
		byPath[f.Path] = f
		leaves = append(leaves, merkle.FileLeaf{Path: f.Path, Hash: f.SHA})
	}
	merkle.SortLeaves(leaves)
	newTree := merkle.Build(leaves)
	diff := merkle.DiffTrees(prevTree, newTree)

	report.ChangedPaths = diff.ChangedPaths
	report.NewPaths = diff.NewPaths
	report.DeletedPaths = diff.DeletedPaths

	if err := ctx.Err(); err != nil {
		return report, codeerr.Cancelled("indexing cancelled before delete step")
	}

	// Step 3: delete chunks/embeddings for deleted ∪ changed, and file
	// rows for deleted (changed file rows are overwritten in step 4).
	toRemove := append(append([]string{}, diff.DeletedPaths...), diff.ChangedPaths...)
	for _, path := range toRemove {
		ids, err := o.repo.DeleteChunksByFile(ctx, project.ID, path)
		if err != nil {
			return report, err
		}
		if len(ids) > 0 {
			if err := o.repo.DeleteEmbeddings(ctx, ids); err != nil {
				return report, err
			}
		}
	}
	for _, path := range diff.DeletedPaths {
		if err := o.repo.DeleteFile(ctx, project.ID, path); err != nil {
			return report, err
		}
	}

	if err := ctx.Err(); err != nil {
		return report, codeerr.Cancelled("indexing cancelled before save step")
	}

	// Step 4: save file rows for new ∪ changed, parsed=false.
	toSave := append(append([]string{}, diff.NewPaths...), diff.ChangedPaths...)
	savedFiles := make([]repository.File, 0, len(toSave))
	fileByPath := make(map[string]repository.File, len(toSave))
	for _, path := range toSave {
		in := byPath[path]
		tag := lang.Detect(path)
		f := repository.File{
			ID:        uuid.New().String(),
			ProjectID: project.ID,
			Path:      path,
			Hash:      in.SHA,
			Size:      in.Size,
			Language:  string(tag),
			Parsed:    false,
		}
		savedFiles = append(savedFiles, f)
		fileByPath[path] = f
	}
	if len(savedFiles) > 0 {
		if err := o.repo.SaveFiles(ctx, project.ID, savedFiles); err != nil {
			return report, err
		}
	}

	// Step 5: parse each saved file, bounded parallel, non-fatal failures.
	chunks, failures := o.parseFiles(ctx, log, project.ID, toSave, byPath, fileByPath)
	report.Failures = failures
	report.ProcessedFileIDs = make([]string, 0, len(fileByPath))
	for _, f := range fileByPath {
		report.ProcessedFileIDs = append(report.ProcessedFileIDs, f.ID)
	}

	if err := ctx.Err(); err != nil {
		return report, codeerr.Cancelled("indexing cancelled before chunk persist")
	}

	// Step 6: persist chunks in batches.
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := o.repo.SaveChunks(ctx, project.ID, chunks[start:end]); err != nil {
			return report, err
		}
	}
	report.TotalChunks = len(chunks)

	// Steps 7-8: embed in batches, batch-isolated retry, then persist. A
	// provider swap (detected by a stored dimension that disagrees with
	// the active provider's) invalidates every previously saved vector,
	// not just the ones belonging to new/changed files, so the whole
	// project's chunks are re-embedded instead of just this run's diff.
	embedTargets := chunks
	dimensionChanged := project.EmbeddingDimension != 0 && project.EmbeddingDimension != o.embedder.Dimension()
	if dimensionChanged {
		allProjectChunks, err := o.repo.ListChunksByProject(ctx, project.ID, 0, 1<<30)
		if err != nil {
			return report, err
		}
		log.Info("embedding dimension changed, re-embedding entire project",
			zap.Int("previous_dimension", project.EmbeddingDimension),
			zap.Int("current_dimension", o.embedder.Dimension()),
			zap.Int("chunk_count", len(allProjectChunks)),
		)
		embedTargets = allProjectChunks
	}

	embeddedCount, embedFailures, err := o.embedAndPersist(ctx, log, project.ID, embedTargets, batchSize)
	if err != nil {
		return report, err
	}
	report.Failures = append(report.Failures, embedFailures...)
	report.TotalEmbeddings = embeddedCount

	if err := ctx.Err(); err != nil {
		return report, codeerr.Cancelled("indexing cancelled before final persist")
	}

	// Step 9: persist the new root/nodes and update project state.
	if err := o.repo.SaveMerkleNodes(ctx, project.ID, newTree.Nodes); err != nil {
		return report, err
	}
	if err := o.repo.SaveMerkleRoot(ctx, project.ID, newTree.Root); err != nil {
		return report, err
	}

	allFiles, err := o.repo.ListFilesByProject(ctx, project.ID)
	if err != nil {
		return report, err
	}
	indexedFiles := 0
	for _, f := range allFiles {
		if f.Parsed {
			indexedFiles++
		}
	}

	allChunks, err := o.repo.ListChunksByProject(ctx, project.ID, 0, 1<<30)
	if err != nil {
		return report, err
	}

	project.MerkleRootHash = newTree.Root
	project.TotalFiles = len(allFiles)
	project.IndexedFiles = indexedFiles
	project.TotalChunks = len(allChunks)
	project.EmbeddingDimension = o.embedder.Dimension()
	project.Status = repository.StatusCompleted
	project.Progress = 100
	project.LastIndexedAt = time.Now()
	if err := o.repo.UpdateProject(ctx, project); err != nil {
		return report, err
	}

	if err := o.repo.SaveDetectedLanguages(ctx, project.ID, detectLanguageBytes(allFiles)); err != nil {
		return report, err
	}
	if err := o.repo.SaveDetectedFrameworks(ctx, project.ID, detectFrameworks(allChunks)); err != nil {
		return report, err
	}
	if err := o.repo.SaveArchitecturePatterns(ctx, project.ID, detectArchitecturePatterns(allFiles)); err != nil {
		return report, err
	}

	report.TotalFiles = len(allFiles)
	return report, nil
}

// parseFiles runs step 5 over paths, bounded by parseConcurrency. A
// parser error is non-fatal: it is recorded on the file row and as a
// Report failure, and parsing continues for the remaining files.
func (o *Orchestrator) parseFiles(ctx context.Context, log *zap.Logger, projectID string, paths []string, byPath map[string]FileInput, fileByPath map[string]repository.File) ([]repository.Chunk, []FileFailure) {
	var (
		mu       sync.Mutex
		chunks   []repository.Chunk
		failures []FileFailure
	)

	g := new(errgroup.Group)
	g.SetLimit(parseConcurrency)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			in := byPath[path]
			f := fileByPath[path]
			tag := lang.Detect(path)

			if !tag.Chunkable() {
				if err := o.repo.UpdateFileParseResult(ctx, projectID, path, true, ""); err != nil {
					log.Warn("failed to record parse result", zap.String("path", path), zap.Error(err))
				}
				return nil
			}

			parser, ok := o.parsers.Lookup(tag)
			if !ok {
				if err := o.repo.UpdateFileParseResult(ctx, projectID, path, true, ""); err != nil {
					log.Warn("failed to record parse result", zap.String("path", path), zap.Error(err))
				}
				return nil
			}

			parsed, err := parser.Parse(string(in.Content), path)
			if err != nil {
				reason := codeerr.ParseFailed(err.Error()).Error()
				if uerr := o.repo.UpdateFileParseResult(ctx, projectID, path, false, reason); uerr != nil {
					log.Warn("failed to record parse failure", zap.String("path", path), zap.Error(uerr))
				}
				mu.Lock()
				failures = append(failures, FileFailure{Path: path, Reason: reason})
				mu.Unlock()
				return nil
			}

			fileChunks := make([]repository.Chunk, 0, len(parsed))
			for _, p := range parsed {
				fileChunks = append(fileChunks, repository.Chunk{
					ID:          uuid.New().String(),
					ProjectID:   projectID,
					FileID:      f.ID,
					FilePath:    path,
					ChunkType:   string(p.ChunkType),
					Symbol:      p.Symbol,
					Content:     p.Content,
					ContentHash: hashutil.HashString(p.Content),
					Language:    string(tag),
					StartLine:   p.StartLine,
					EndLine:     p.EndLine,
					TokenCount:  p.TokenCount,
					Imports:     p.Imports,
				})
			}
			if err := o.repo.UpdateFileParseResult(ctx, projectID, path, true, ""); err != nil {
				log.Warn("failed to record parse result", zap.String("path", path), zap.Error(err))
			}

			mu.Lock()
			chunks = append(chunks, fileChunks...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never return non-nil; failures are collected, not propagated

	return chunks, failures
}

// embedAndPersist runs steps 7-8: embed chunk contents in batches,
// retrying a failed batch once before recording its chunks as failed,
// then persisting the successfully embedded vectors batch-atomically.
// Embedding failures are non-fatal (recorded in the returned
// failures); a persistence error while saving embeddings is fatal to
// the run and returned as err.
func (o *Orchestrator) embedAndPersist(ctx context.Context, log *zap.Logger, projectID string, chunks []repository.Chunk, batchSize int) (int, []FileFailure, error) {
	type group struct {
		chunks []repository.Chunk
	}
	var groups []group
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		groups = append(groups, group{chunks: chunks[start:end]})
	}

	var (
		mu       sync.Mutex
		failures []FileFailure
		saved    int
	)

	rateLimitOpts := embed.DefaultBatchOptions()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rateLimitOpts.Concurrency)

	for _, grp := range groups {
		grp := grp
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			texts := make([]string, len(grp.chunks))
			for i, c := range grp.chunks {
				texts[i] = c.Content
			}

			vecs, err := embedGroupWithRetry(gctx, o.embedder, texts, rateLimitOpts)
			if err != nil {
				log.Warn("embedding batch failed, marking chunks un-embedded", zap.Int("batch_size", len(grp.chunks)), zap.Error(err))
				mu.Lock()
				for _, c := range grp.chunks {
					failures = append(failures, FileFailure{Path: c.FilePath, Reason: fmt.Sprintf("embedding failed: %v", err)})
				}
				mu.Unlock()
				return nil
			}

			embeddings := make([]vectorstore.Embedding, len(grp.chunks))
			for i, c := range grp.chunks {
				embeddings[i] = vectorstore.Embedding{
					ChunkID:       c.ID,
					ProjectID:     projectID,
					Vector:        vecs[i],
					SchemaVersion: o.schemaVersion,
				}
			}
			if err := o.repo.SaveEmbeddings(gctx, projectID, embeddings); err != nil {
				return err
			}
			mu.Lock()
			saved += len(embeddings)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if kind, ok := codeerr.KindOf(err); ok && kind == codeerr.KindPersistence {
			return saved, failures, err
		}
		if ctx.Err() != nil {
			return saved, failures, codeerr.Cancelled("indexing cancelled during embedding")
		}
	}

	return saved, failures, nil
}

// embedGroupWithRetry embeds one group as a single logical batch
// (internally still protected by the rate-limit backoff/5-attempt
// loop), retrying the whole group once more on any failure, including
// exhausted rate-limit attempts, unless ctx is done, before giving up.
func embedGroupWithRetry(ctx context.Context, port embed.Port, texts []string, rateLimitOpts embed.BatchOptions) ([][]float32, error) {
	opts := rateLimitOpts
	opts.BatchSize = len(texts)
	opts.Concurrency = 1

	vecs, err := embed.EmbedBatches(ctx, port, texts, opts)
	if err == nil {
		return vecs, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return embed.EmbedBatches(ctx, port, texts, opts)
}

// markFailed records the project as failed on a best-effort basis,
// using a detached context since the run's own ctx may already be
// cancelled.
func (o *Orchestrator) markFailed(project repository.Project, reason string) {
	project.Status = repository.StatusFailed
	bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.repo.UpdateProject(bgCtx, project); err != nil {
		o.logger.Error("failed to record failed status",
			zap.String("project_id", project.ID), zap.String("reason", reason), zap.Error(err))
	}
}
