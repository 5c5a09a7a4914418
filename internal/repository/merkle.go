package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
	"github.com/cdeust/ai-prd-codeindex/internal/merkle"
)

// MerkleStore is the Merkle-tree persistence slice of the repository contract:
// the root hash is kept in repo_metadata under a per-project key, while
// the full node set is stored and reloaded to rebuild the tree for the
// next diff.
type MerkleStore interface {
	SaveMerkleRoot(ctx context.Context, projectID, rootHash string) error
	LoadMerkleRoot(ctx context.Context, projectID string) (string, error)
	SaveMerkleNodes(ctx context.Context, projectID string, nodes map[string]*merkle.Node) error
	LoadMerkleNodes(ctx context.Context, projectID string) (map[string]*merkle.Node, error)
}

type sqliteMerkleStore struct {
	db *sql.DB
}

// SaveMerkleRoot stores the project's current tree root hash in
// repo_metadata under a per-project key. It does not touch the
// projects row's merkle_root_hash column, which UpdateProject sets.
func (s *sqliteMerkleStore) SaveMerkleRoot(ctx context.Context, projectID, rootHash string) error {
	_, err := sq.Insert("repo_metadata").
		Columns("key", "value", "updated_at").
		Values(merkleRootKey(projectID), rootHash, sq.Expr("datetime('now')")).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return codeerr.Persistence(fmt.Sprintf("save merkle root for project %s", projectID), err)
	}
	return nil
}

// LoadMerkleRoot returns the project's last saved root hash, or "" if
// none has been saved yet (first index run).
func (s *sqliteMerkleStore) LoadMerkleRoot(ctx context.Context, projectID string) (string, error) {
	var root string
	err := sq.Select("value").
		From("repo_metadata").
		Where(sq.Eq{"key": merkleRootKey(projectID)}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&root)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", codeerr.Persistence(fmt.Sprintf("load merkle root for project %s", projectID), err)
	}
	return root, nil
}

// SaveMerkleNodes replaces the project's entire node set, per the
// "save nodes (entire node set per project)" contract.
func (s *sqliteMerkleStore) SaveMerkleNodes(ctx context.Context, projectID string, nodes map[string]*merkle.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.Persistence("begin merkle node batch", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM merkle_nodes WHERE project_id = ?", projectID); err != nil {
		return codeerr.Persistence(fmt.Sprintf("clear merkle nodes for project %s", projectID), err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO merkle_nodes (project_id, hash, path, is_leaf, file_id, left_path, right_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return codeerr.Persistence("prepare merkle node insert", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, projectID, n.Hash, n.Path, boolToInt(n.IsLeaf), n.FileID, n.LeftPath, n.RightPath); err != nil {
			return codeerr.Persistence(fmt.Sprintf("insert merkle node %s", n.Path), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return codeerr.Persistence("commit merkle node batch", err)
	}
	return nil
}

func (s *sqliteMerkleStore) LoadMerkleNodes(ctx context.Context, projectID string) (map[string]*merkle.Node, error) {
	rows, err := sq.Select("hash", "path", "is_leaf", "file_id", "left_path", "right_path").
		From("merkle_nodes").
		Where(sq.Eq{"project_id": projectID}).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, codeerr.Persistence(fmt.Sprintf("load merkle nodes for project %s", projectID), err)
	}
	defer rows.Close()

	nodes := make(map[string]*merkle.Node)
	for rows.Next() {
		var n merkle.Node
		var isLeaf int
		if err := rows.Scan(&n.Hash, &n.Path, &isLeaf, &n.FileID, &n.LeftPath, &n.RightPath); err != nil {
			return nil, codeerr.Persistence("scan merkle node row", err)
		}
		n.IsLeaf = isLeaf != 0
		nodes[n.Path] = &n
	}
	if err := rows.Err(); err != nil {
		return nil, codeerr.Persistence("iterate merkle nodes", err)
	}
	return nodes, nil
}

func merkleRootKey(projectID string) string {
	return "merkle_root:" + projectID
}
