package worker

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/minimax-worker/pkg/llm"
	"github.com/papercomputeco/minimax-worker/pkg/merkle"
)

// HistoryResponse contains the conversation history for a given node.
type HistoryResponse struct {
	// Turns in chronological order (oldest first, up to and including the requested node)
	Turns []HistoryTurn `json:"turns"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of turns in the history
	Depth int `json:"depth"`
}

// HistoryTurn is one turn in a conversation history.
type HistoryTurn struct {
	Hash        string  `json:"hash"`
	ParentHash  *string `json:"parent_hash,omitempty"`
	Role        string  `json:"role"`
	Text        string  `json:"text"`
	Model       string  `json:"model,omitempty"`
	TotalTokens int     `json:"total_tokens,omitempty"`
}

func (w *Worker) handleDAGStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	nodes, err := w.storer.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := w.storer.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := w.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes": len(nodes),
		"root_count":  len(roots),
		"leaf_count":  len(leaves),
	})
}

func (w *Worker) handleGetNode(c *fiber.Ctx) error {
	hash := c.Params("hash")

	node, err := w.storer.Get(c.UserContext(), hash)
	if merkle.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}
	if err != nil {
		w.logger.Error("failed to get node", zap.String("hash", hash), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get node"})
	}

	return c.JSON(node)
}

// handleListHistories returns one history per leaf, i.e. per distinct
// conversation branch.
func (w *Worker) handleListHistories(c *fiber.Ctx) error {
	ctx := c.UserContext()

	leaves, err := w.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := w.buildHistory(ctx, leaf.Hash)
		if err != nil {
			w.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

func (w *Worker) handleGetHistory(c *fiber.Ctx) error {
	history, err := w.buildHistory(c.UserContext(), c.Params("hash"))
	if merkle.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to build history"})
	}

	return c.JSON(history)
}

func (w *Worker) buildHistory(ctx context.Context, hash string) (*HistoryResponse, error) {
	path, err := w.storer.Descendants(ctx, hash)
	if err != nil {
		return nil, err
	}

	turns := make([]HistoryTurn, 0, len(path))
	for _, node := range path {
		turns = append(turns, HistoryTurn{
			Hash:        node.Hash,
			ParentHash:  node.ParentHash,
			Role:        node.Content.Role,
			Text:        node.Content.Text,
			Model:       node.Content.Model,
			TotalTokens: node.Content.TotalTokens,
		})
	}

	return &HistoryResponse{
		Turns:    turns,
		HeadHash: hash,
		Depth:    len(turns),
	}, nil
}
