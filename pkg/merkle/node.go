// Package merkle stores conversation transcripts as a content-addressed
// Merkle DAG. Each turn of a conversation is a node whose parent is the turn
// before it, so identical histories share nodes and divergent replies branch
// from their common prefix.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Content is the hashable payload of a node: one conversation turn.
type Content struct {
	// Role is the template role label of the speaker, e.g. "USER" or "BOT".
	Role string `json:"role"`

	// Text is the turn text with the role prefix stripped.
	Text string `json:"text"`

	// Model is the vendor model that produced or received the turn.
	Model string `json:"model,omitempty"`

	// TotalTokens is the vendor-reported usage. Only set on reply nodes.
	TotalTokens int `json:"total_tokens,omitempty"`
}

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous turn.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Content Content `json:"content"`
}

// NewNode creates a new node with the computed hash for the provided content
func NewNode(content Content, parent *Node) *Node {
	n := &Node{
		Content: content,
	}

	if parent != nil {
		parentHash := parent.Hash
		n.ParentHash = &parentHash
	}

	n.Hash = n.computeHash()
	return n
}

// IsRoot reports whether the node starts a conversation.
func (n *Node) IsRoot() bool {
	return n.ParentHash == nil
}

// Verify recomputes the hash and reports whether it matches the stored one.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

type hashInput struct {
	Parent  string  `json:"parent"`
	Content Content `json:"content"`
}

func (n *Node) computeHash() string {
	in := hashInput{Content: n.Content}
	if n.ParentHash != nil {
		in.Parent = *n.ParentHash
	}

	// Struct field order makes the encoding deterministic.
	data, err := json.Marshal(in)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
