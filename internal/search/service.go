// Package search implements embedding-backed file and chunk similarity
// queries over an indexed project.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cdeust/ai-prd-codeindex/internal/embed"
	"github.com/cdeust/ai-prd-codeindex/internal/repository"
)

// Dependencies is the narrow persistence slice the search service
// needs: embedding similarity search plus the project row for its
// tech-stack summary. Callers should depend on this rather than the
// full repository.Repository where only search is needed.
type Dependencies interface {
	repository.EmbeddingStore
	repository.ProjectStore
}

// Service answers similarity queries against one engine's indexed
// projects. A single instance is safe for concurrent use across
// projects; it holds no mutable state of its own.
type Service struct {
	repo     Dependencies
	embedder embed.Port
}

// New builds a Service over repo and embedder. embedder must be the
// same provider (or one with an identical dimension/schema version)
// used to index the projects this Service will query.
func New(repo Dependencies, embedder embed.Port) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// SearchFiles embeds queryText and returns the k files whose best
// matching chunk is most similar, ordered by similarity descending
// Ties are broken by path ascending for determinism.
func (s *Service) SearchFiles(ctx context.Context, projectID, queryText string, k int, threshold float64) ([]FileResult, error) {
	if k <= 0 {
		return nil, nil
	}
	vector, err := s.embedder.EmbedOne(ctx, queryText)
	if err != nil {
		return nil, err
	}

	chunkK := k * fileFanoutMultiplier
	hits, err := s.repo.SearchEmbeddings(ctx, projectID, vector, chunkK, threshold)
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64, len(hits))
	for _, h := range hits {
		if cur, ok := best[h.Chunk.FilePath]; !ok || h.Similarity > cur {
			best[h.Chunk.FilePath] = h.Similarity
		}
	}

	results := make([]FileResult, 0, len(best))
	for path, sim := range best {
		results = append(results, FileResult{Path: path, Similarity: sim})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Enrich embeds prdDescription and returns up to maxChunks relevant
// chunks plus a tech-stack summary and a deterministic Markdown
// context block, for the document generator to ground a PRD in the
// actual codebase.
func (s *Service) Enrich(ctx context.Context, prdDescription, projectID string, maxChunks int, threshold float64) (EnrichResult, error) {
	vector, err := s.embedder.EmbedOne(ctx, prdDescription)
	if err != nil {
		return EnrichResult{}, err
	}

	hits, err := s.repo.SearchEmbeddings(ctx, projectID, vector, maxChunks, threshold)
	if err != nil {
		return EnrichResult{}, err
	}

	chunks := make([]Chunk, 0, len(hits))
	for _, h := range hits {
		var symbols []string
		if h.Chunk.Symbol != "" {
			symbols = []string{h.Chunk.Symbol}
		}
		chunks = append(chunks, Chunk{
			FilePath:   h.Chunk.FilePath,
			Content:    h.Chunk.Content,
			ChunkType:  h.Chunk.ChunkType,
			Language:   h.Chunk.Language,
			Symbols:    symbols,
			StartLine:  h.Chunk.StartLine,
			EndLine:    h.Chunk.EndLine,
			Similarity: h.Similarity,
		})
	}

	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return EnrichResult{}, err
	}
	techStack := buildTechStack(project)

	return EnrichResult{
		Chunks:          chunks,
		TechStack:       techStack,
		ContextMarkdown: renderContext(chunks, techStack),
	}, nil
}

func buildTechStack(p repository.Project) TechStack {
	var primary string
	var maxBytes int64 = -1
	for lang, bytes := range p.DetectedLanguages {
		if bytes > maxBytes {
			primary, maxBytes = lang, bytes
		}
	}

	patternNames := make([]string, len(p.ArchitecturePatterns))
	for i, pat := range p.ArchitecturePatterns {
		patternNames[i] = pat.Name
	}

	return TechStack{
		PrimaryLanguage:      primary,
		Frameworks:           p.DetectedFrameworks,
		ArchitecturePatterns: patternNames,
	}
}

// renderContext builds the deterministic Markdown block that
// describes: the top fullRenderLimit chunks rendered in full, any
// remaining chunks summarized only by count.
func renderContext(chunks []Chunk, stack TechStack) string {
	var b strings.Builder

	b.WriteString("# Codebase Context\n\n")
	b.WriteString("## Tech Stack\n")
	if stack.PrimaryLanguage != "" {
		fmt.Fprintf(&b, "- Primary language: %s\n", stack.PrimaryLanguage)
	}
	if len(stack.Frameworks) > 0 {
		fmt.Fprintf(&b, "- Frameworks: %s\n", strings.Join(stack.Frameworks, ", "))
	}
	if len(stack.ArchitecturePatterns) > 0 {
		fmt.Fprintf(&b, "- Architecture patterns: %s\n", strings.Join(stack.ArchitecturePatterns, ", "))
	}
	b.WriteString("\n## Relevant Code\n")

	full := chunks
	rest := 0
	if len(chunks) > fullRenderLimit {
		full = chunks[:fullRenderLimit]
		rest = len(chunks) - fullRenderLimit
	}

	for _, c := range full {
		fmt.Fprintf(&b, "\n### %s (lines %d-%d, %s, similarity %.3f)\n", c.FilePath, c.StartLine, c.EndLine, c.ChunkType, c.Similarity)
		if len(c.Symbols) > 0 {
			fmt.Fprintf(&b, "Symbols: %s\n", strings.Join(c.Symbols, ", "))
		}
		fmt.Fprintf(&b, "```%s\n%s\n```\n", c.Language, c.Content)
	}

	if rest > 0 {
		fmt.Fprintf(&b, "\n_%d additional relevant chunk(s) omitted for brevity._\n", rest)
	}

	return b.String()
}
