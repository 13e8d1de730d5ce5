package merkle

import (
	"context"
	"errors"
)

// Storer persists and traverses the transcript DAG. De-duplication happens
// through content addressing: the same turn under the same parent hashes to
// the same node, which implementations store once.
type Storer interface {
	// Put stores a node. Storing an existing hash is a no-op.
	Put(ctx context.Context, node *Node) error

	// Get retrieves a node by its hash. Returns ErrNotFound if the node doesn't exist.
	Get(ctx context.Context, hash string) (*Node, error)

	// Has checks if a node exists by its hash.
	Has(ctx context.Context, hash string) (bool, error)

	// GetByParent retrieves all nodes that have the given parent hash.
	// Pass nil to get root nodes.
	GetByParent(ctx context.Context, parentHash *string) ([]*Node, error)

	// List returns all nodes in the store.
	List(ctx context.Context) ([]*Node, error)

	// Roots returns all root nodes (nodes with no parent).
	Roots(ctx context.Context) ([]*Node, error)

	// Leaves returns all leaf nodes (nodes with no children).
	Leaves(ctx context.Context) ([]*Node, error)

	// Ancestry returns the path from a node back to its root (node first, root last).
	Ancestry(ctx context.Context, hash string) ([]*Node, error)

	// Descendants returns the path from root to node (root first, node last).
	Descendants(ctx context.Context, hash string) ([]*Node, error)

	// Depth returns the depth of a node (0 for roots).
	Depth(ctx context.Context, hash string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// ErrNilNode is returned by Put when given a nil node.
var ErrNilNode = errors.New("cannot store nil node")

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}

	return "node not found: " + e.Hash
}

// IsNotFound reports whether err is, or wraps, an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ancestry walks parent links from hash to its root using get.
func ancestry(ctx context.Context, hash string, get func(context.Context, string) (*Node, error)) ([]*Node, error) {
	var path []*Node
	current := hash
	for {
		node, err := get(ctx, current)
		if err != nil {
			return nil, err
		}
		path = append(path, node)
		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}

func reversed(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}
