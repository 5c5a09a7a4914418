// Package repository implements the ProjectRepository persistence
// contract: project, file, chunk, embedding, and Merkle-node
// storage over SQLite, plus thin PRD linkage.
package repository

import "time"

// SourceSystem tags the hosted-git provider a project's repository
// lives on, from a fixed enum.
type SourceSystem string

const (
	SourceHostedGitA SourceSystem = "hosted-git-a"
	SourceHostedGitB SourceSystem = "hosted-git-b"
	SourceHostedGitC SourceSystem = "hosted-git-c"
)

// IndexingStatus is a Project's position in the indexing state machine.
type IndexingStatus string

const (
	StatusPending   IndexingStatus = "pending"
	StatusIndexing  IndexingStatus = "indexing"
	StatusCompleted IndexingStatus = "completed"
	StatusFailed    IndexingStatus = "failed"
)

// ArchitecturePattern is one detected pattern with its confidence and
// the file paths that evidenced it.
type ArchitecturePattern struct {
	Name          string
	Confidence    float64
	EvidencePaths []string
}

// Project is the root aggregate a codebase index is scoped to.
type Project struct {
	ID           string
	URL          string
	Branch       string
	SourceSystem SourceSystem

	MerkleRootHash string
	TotalFiles     int
	IndexedFiles   int
	TotalChunks    int
	Status         IndexingStatus
	Progress       int
	LastIndexedAt  time.Time

	// EmbeddingDimension is the vector width of the provider that last
	// embedded this project's chunks, or 0 before the first successful
	// run. The orchestrator compares this against its current provider's
	// dimension to detect a provider swap that requires re-embedding
	// everything rather than just the diffed files.
	EmbeddingDimension int

	DetectedLanguages    map[string]int64
	DetectedFrameworks   []string
	ArchitecturePatterns []ArchitecturePattern

	CreatedAt time.Time
	UpdatedAt time.Time
}

// File is the latest known state of one repository file.
type File struct {
	ID         string
	ProjectID  string
	Path       string
	Hash       string
	Size       int64
	Language   string
	Parsed     bool
	ParseError string
	IndexedAt  time.Time
}

// Chunk is one parsed unit of a file, ready for embedding and search.
type Chunk struct {
	ID          string
	ProjectID   string
	FileID      string
	FilePath    string
	ChunkType   string
	Symbol      string
	Content     string
	ContentHash string
	Language    string
	StartLine   int
	EndLine     int
	TokenCount  int
	Imports     []string
	CreatedAt   time.Time
}

// HydratedResult is a similarity search hit joined back to its full
// chunk content, per the embeddings-search contract.
type HydratedResult struct {
	Chunk      Chunk
	Similarity float64
}

// MerkleNodeRecord is the persisted form of a merkle.Node, scoped to a
// project so the tree can be reloaded for diffing on the next run.
type MerkleNodeRecord struct {
	ProjectID string
	Hash      string
	Path      string
	IsLeaf    bool
	FileID    string
	LeftPath  string
	RightPath string
}
