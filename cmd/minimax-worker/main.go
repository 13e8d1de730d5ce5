package main

import (
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/minimax-worker/cmd/minimax-worker/chat"
	mergecmder "github.com/papercomputeco/minimax-worker/cmd/minimax-worker/merge"
	servecmder "github.com/papercomputeco/minimax-worker/cmd/minimax-worker/serve"
)

const rootLongDesc string = `MiniMax model worker for a chat host controller.

Serves the MiniMax chatcompletion API behind the host's worker
protocol, with an interactive chat mode for trying prompts and
tools for the recorded conversation transcripts.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "minimax-worker",
		Short:         "MiniMax model worker",
		Long:          rootLongDesc,
		SilenceUsage:  true,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(mergecmder.NewMergeCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
