package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/log"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Index every document of a workspace without the queue",
	RunE:  runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.Flags().StringP("workspace", "w", "", "Workspace ID")
	backfillCmd.MarkFlagRequired("workspace")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	workspaceID, _ := cmd.Flags().GetString("workspace")

	c, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.settings.RequireEmbedding(); err != nil {
		return err
	}
	exists, err := c.store.TableExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to probe embeddings table: %w", err)
	}
	if !exists {
		return aisearch.ErrSchemaMissing
	}

	ids, err := c.docs.ListDocumentIDs(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	log.Info("Backfilling workspace", "workspace", workspaceID, "documents", len(ids))

	bar := progressbar.Default(int64(len(ids)), "indexing")
	failed := 0
	for _, id := range ids {
		if err := c.consumer.ReindexDocuments(ctx, workspaceID, []string{id}); err != nil {
			if ctx.Err() != nil || aisearch.IsFatal(err) {
				return err
			}
			failed++
			log.Error(err, "Failed to index document", "document", id)
		}
		bar.Add(1)
	}
	bar.Finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to index", failed, len(ids))
	}
	fmt.Printf("Indexed %d documents\n", len(ids))
	return nil
}
