package merkle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	hash         TEXT PRIMARY KEY,
	parent_hash  TEXT,
	role         TEXT NOT NULL,
	text         TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	total_tokens INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_nodes_parent_hash ON nodes(parent_hash);
`

const nodeColumns = `hash, parent_hash, role, text, model, total_tokens`

// SQLiteStorer persists the DAG in a SQLite database.
type SQLiteStorer struct {
	db *sql.DB
}

// NewSQLiteStorer opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStorer(path string) (*SQLiteStorer, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStorer{db: db}, nil
}

func (s *SQLiteStorer) Put(ctx context.Context, node *Node) error {
	if node == nil {
		return ErrNilNode
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		node.Hash,
		nullableString(node.ParentHash),
		node.Content.Role,
		node.Content.Text,
		node.Content.Model,
		node.Content.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("insert node %s: %w", node.Hash, err)
	}
	return nil
}

func (s *SQLiteStorer) Get(ctx context.Context, hash string) (*Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE hash = ?`, hash)

	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound{Hash: hash}
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", hash, err)
	}
	return node, nil
}

func (s *SQLiteStorer) Has(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM nodes WHERE hash = ?)`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check node %s: %w", hash, err)
	}
	return exists, nil
}

func (s *SQLiteStorer) GetByParent(ctx context.Context, parentHash *string) ([]*Node, error) {
	if parentHash == nil {
		return s.query(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE parent_hash IS NULL ORDER BY rowid`)
	}
	return s.query(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE parent_hash = ? ORDER BY rowid`, *parentHash)
}

func (s *SQLiteStorer) List(ctx context.Context) ([]*Node, error) {
	return s.query(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY rowid`)
}

func (s *SQLiteStorer) Roots(ctx context.Context) ([]*Node, error) {
	return s.GetByParent(ctx, nil)
}

func (s *SQLiteStorer) Leaves(ctx context.Context) ([]*Node, error) {
	return s.query(ctx, `
		SELECT `+nodeColumns+` FROM nodes n
		WHERE NOT EXISTS (SELECT 1 FROM nodes c WHERE c.parent_hash = n.hash)
		ORDER BY rowid`)
}

func (s *SQLiteStorer) Ancestry(ctx context.Context, hash string) ([]*Node, error) {
	return ancestry(ctx, hash, s.Get)
}

func (s *SQLiteStorer) Descendants(ctx context.Context, hash string) ([]*Node, error) {
	path, err := s.Ancestry(ctx, hash)
	if err != nil {
		return nil, err
	}
	return reversed(path), nil
}

func (s *SQLiteStorer) Depth(ctx context.Context, hash string) (int, error) {
	var depth int
	err := s.db.QueryRowContext(ctx, `
		WITH RECURSIVE chain(hash, parent_hash, depth) AS (
			SELECT hash, parent_hash, 0 FROM nodes WHERE hash = ?
			UNION ALL
			SELECT n.hash, n.parent_hash, chain.depth + 1
			FROM nodes n JOIN chain ON n.hash = chain.parent_hash
		)
		SELECT MAX(depth) FROM chain`, hash).Scan(&depth)
	if err != nil {
		// MAX over an empty chain is NULL.
		ok, hasErr := s.Has(ctx, hash)
		if hasErr == nil && !ok {
			return 0, ErrNotFound{Hash: hash}
		}
		return 0, fmt.Errorf("depth of %s: %w", hash, err)
	}
	return depth, nil
}

func (s *SQLiteStorer) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorer) query(ctx context.Context, q string, args ...any) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]*Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*Node, error) {
	var (
		node   Node
		parent sql.NullString
	)
	err := row.Scan(
		&node.Hash,
		&parent,
		&node.Content.Role,
		&node.Content.Text,
		&node.Content.Model,
		&node.Content.TotalTokens,
	)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		node.ParentHash = &parent.String
	}
	return &node, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ Storer = (*SQLiteStorer)(nil)
