package search

// FileResult is one hit from SearchFiles: a file and its best-matching
// chunk's similarity to the query, at file granularity.
type FileResult struct {
	Path       string
	Similarity float64
}

// Chunk is one hydrated, similarity-scored chunk returned by Enrich.
type Chunk struct {
	FilePath   string
	Content    string
	ChunkType  string
	Language   string
	Symbols    []string
	StartLine  int
	EndLine    int
	Similarity float64
}

// TechStack summarizes a project's detected stack for PRD generation
// context: the highest-byte-count language, the frameworks detected
// across its chunks' imports, and the names of detected architecture
// patterns.
type TechStack struct {
	PrimaryLanguage      string
	Frameworks           []string
	ArchitecturePatterns []string
}

// EnrichResult is Enrich's full output: the ranked chunks, a tech-stack
// summary, and the rendered Markdown context block.
type EnrichResult struct {
	Chunks          []Chunk
	TechStack       TechStack
	ContextMarkdown string
}

// fullRenderLimit is how many of the top chunks Enrich's Markdown block
// renders in full; the rest are summarized by count only.
const fullRenderLimit = 10

// fileFanoutMultiplier requests this many chunk-level hits per
// requested file so SearchFiles has enough chunks to find each
// distinct file's best match before truncating to k files.
const fileFanoutMultiplier = 20
