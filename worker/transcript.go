package worker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/papercomputeco/minimax-worker/pkg/conversation"
	"github.com/papercomputeco/minimax-worker/pkg/merkle"
)

// storeTranscript stores a completed generation in the Merkle DAG and returns
// the hash of the reply node.
//
// Each decoded turn of the prompt becomes a node linked to the turn before it,
// and the reply hangs off the last turn. Hosts resend the full history on
// every request, so earlier turns hash to nodes that already exist and only
// the new question and reply are written. A regenerated reply branches from
// the shared prefix.
func (w *Worker) storeTranscript(ctx context.Context, prompt, reply string, totalTokens int) (string, error) {
	turns, err := conversation.Decode(prompt, w.client.Template())
	if err != nil {
		return "", fmt.Errorf("decoding prompt: %w", err)
	}

	model := w.client.Model()
	var parent *merkle.Node

	for _, turn := range turns {
		node := merkle.NewNode(merkle.Content{
			Role:  string(turn.Sender),
			Text:  turn.Text,
			Model: model,
		}, parent)
		if err := w.storer.Put(ctx, node); err != nil {
			return "", fmt.Errorf("storing turn node: %w", err)
		}

		w.logger.Debug("stored turn in DAG",
			zap.String("hash", truncate(node.Hash, 16)),
			zap.String("role", string(turn.Sender)),
			zap.String("text_preview", truncate(turn.Text, 50)),
		)

		parent = node
	}

	replyNode := merkle.NewNode(merkle.Content{
		Role:        string(conversation.Bot),
		Text:        reply,
		Model:       model,
		TotalTokens: totalTokens,
	}, parent)
	if err := w.storer.Put(ctx, replyNode); err != nil {
		return "", fmt.Errorf("storing reply node: %w", err)
	}

	return replyNode.Hash, nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
