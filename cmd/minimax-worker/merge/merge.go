package mergecmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/minimax-worker/pkg/merkle"
)

const mergeLongDesc string = `Merge one or more transcript databases into a target.

Content-addressing makes this a simple union: turns that already
exist in the target are skipped (deduped by hash), so transcripts
recorded by several workers combine into one DAG.

Examples:
  minimax-worker merge --db merged.db worker1.db worker2.db`

const mergeShortDesc string = "Merge transcript databases"

type mergeCommander struct {
	dbPath string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to target SQLite database")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	target, err := merkle.NewSQLiteStorer(c.dbPath)
	if err != nil {
		return fmt.Errorf("could not open target database %s: %w", c.dbPath, err)
	}
	defer target.Close()

	var totalNew, totalDuped int

	for _, srcPath := range sources {
		srcNew, srcDuped, err := mergeInto(ctx, target, srcPath)
		if err != nil {
			return err
		}

		totalNew += srcNew
		totalDuped += srcDuped

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new, %d already existed\n", srcPath, srcNew, srcDuped)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new nodes from %d sources (%d already existed) into %s\n",
		totalNew, len(sources), totalDuped, c.dbPath)

	return nil
}

// mergeInto copies every node of the database at srcPath into target.
// Nodes are listed in insertion order, so parents land before children.
func mergeInto(ctx context.Context, target merkle.Storer, srcPath string) (int, int, error) {
	if _, err := os.Stat(srcPath); err != nil {
		return 0, 0, fmt.Errorf("could not open source database: %w", err)
	}

	source, err := merkle.NewSQLiteStorer(srcPath)
	if err != nil {
		return 0, 0, fmt.Errorf("could not open source database %s: %w", srcPath, err)
	}
	defer source.Close()

	nodes, err := source.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("could not list nodes from %s: %w", srcPath, err)
	}

	var added, duped int
	for _, n := range nodes {
		exists, err := target.Has(ctx, n.Hash)
		if err != nil {
			return 0, 0, fmt.Errorf("could not check node %s: %w", n.Hash, err)
		}
		if exists {
			duped++
			continue
		}
		if err := target.Put(ctx, n); err != nil {
			return 0, 0, fmt.Errorf("could not put node %s: %w", n.Hash, err)
		}
		added++
	}

	return added, duped, nil
}
