package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// schemaVersion is bumped whenever the DDL below changes shape.
const schemaVersion = "3"

// CreateSchema creates all tables and indexes for the engine's own
// persistence, in a single transaction. The vector index (chunks_vec)
// is created separately by vectorstore.CreateSchema, since sqlite-vec
// virtual tables must be created outside any enclosing transaction.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		createProjectsTable,
		createFilesTable,
		createChunksTable,
		createChunkImportsTable,
		createMerkleNodesTable,
		createPRDLinksTable,
		createRepoMetadataTable,
		createProjectLanguagesTable,
		createProjectFrameworksTable,
		createProjectPatternsTable,
		createProjectPatternEvidenceTable,
		"CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(project_id, file_path)",
		"CREATE INDEX IF NOT EXISTS idx_chunk_imports_chunk ON chunk_imports(chunk_id)",
		"CREATE INDEX IF NOT EXISTS idx_merkle_nodes_project ON merkle_nodes(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_project_languages_project ON project_languages(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_project_frameworks_project ON project_frameworks(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_project_patterns_project ON project_patterns(project_id)",
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT INTO repo_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, schemaVersion, now)
	if err != nil {
		return fmt.Errorf("bootstrap repo_metadata: %w", err)
	}

	return tx.Commit()
}

const createProjectsTable = `
CREATE TABLE IF NOT EXISTS projects (
	project_id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	branch TEXT NOT NULL,
	source_system TEXT NOT NULL DEFAULT '',
	merkle_root_hash TEXT NOT NULL DEFAULT '',
	total_files INTEGER NOT NULL DEFAULT 0,
	indexed_files INTEGER NOT NULL DEFAULT 0,
	total_chunks INTEGER NOT NULL DEFAULT 0,
	embedding_dimension INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	progress INTEGER NOT NULL DEFAULT 0,
	last_indexed_at TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(url, branch)
)`

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	file_id TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	file_hash TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	language TEXT NOT NULL DEFAULT '',
	parsed INTEGER NOT NULL DEFAULT 0,
	parse_error TEXT NOT NULL DEFAULT '',
	indexed_at TEXT NOT NULL,
	PRIMARY KEY (project_id, file_path),
	FOREIGN KEY (project_id) REFERENCES projects(project_id) ON DELETE CASCADE
)`

const createChunksTable = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	file_id TEXT NOT NULL DEFAULT '',
	file_path TEXT NOT NULL,
	chunk_type TEXT NOT NULL,
	symbol TEXT NOT NULL,
	content TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	FOREIGN KEY (project_id, file_path) REFERENCES files(project_id, file_path) ON DELETE CASCADE
)`

const createChunkImportsTable = `
CREATE TABLE IF NOT EXISTS chunk_imports (
	chunk_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	import_text TEXT NOT NULL,
	FOREIGN KEY (chunk_id) REFERENCES chunks(chunk_id) ON DELETE CASCADE
)`

const createMerkleNodesTable = `
CREATE TABLE IF NOT EXISTS merkle_nodes (
	project_id TEXT NOT NULL,
	hash TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	is_leaf INTEGER NOT NULL,
	file_id TEXT NOT NULL DEFAULT '',
	left_path TEXT NOT NULL DEFAULT '',
	right_path TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project_id, path),
	FOREIGN KEY (project_id) REFERENCES projects(project_id) ON DELETE CASCADE
)`

const createPRDLinksTable = `
CREATE TABLE IF NOT EXISTS prd_links (
	prd_request_id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	FOREIGN KEY (project_id) REFERENCES projects(project_id) ON DELETE CASCADE
)`

const createRepoMetadataTable = `
CREATE TABLE IF NOT EXISTS repo_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// createProjectLanguagesTable backs Project.DetectedLanguages: a byte
// count per language tag observed across the project's files.
const createProjectLanguagesTable = `
CREATE TABLE IF NOT EXISTS project_languages (
	project_id TEXT NOT NULL,
	language TEXT NOT NULL,
	byte_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (project_id, language),
	FOREIGN KEY (project_id) REFERENCES projects(project_id) ON DELETE CASCADE
)`

// createProjectFrameworksTable backs Project.DetectedFrameworks, an
// ordered sequence preserved via position.
const createProjectFrameworksTable = `
CREATE TABLE IF NOT EXISTS project_frameworks (
	project_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (project_id, position),
	FOREIGN KEY (project_id) REFERENCES projects(project_id) ON DELETE CASCADE
)`

const createProjectPatternsTable = `
CREATE TABLE IF NOT EXISTS project_patterns (
	project_id TEXT NOT NULL,
	name TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (project_id, name),
	FOREIGN KEY (project_id) REFERENCES projects(project_id) ON DELETE CASCADE
)`

const createProjectPatternEvidenceTable = `
CREATE TABLE IF NOT EXISTS project_pattern_evidence (
	project_id TEXT NOT NULL,
	pattern_name TEXT NOT NULL,
	position INTEGER NOT NULL,
	path TEXT NOT NULL,
	PRIMARY KEY (project_id, pattern_name, position),
	FOREIGN KEY (project_id, pattern_name) REFERENCES project_patterns(project_id, name) ON DELETE CASCADE
)`
