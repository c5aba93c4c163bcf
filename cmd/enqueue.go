package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docsearch/src/core/indexing"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <event>",
	Short: "Publish a document lifecycle event",
	Long: `Publish one lifecycle event and queue the indexing job it maps to.

Events: document.created, document.updated, document.moved, document.restored,
document.soft_deleted, document.deleted, workspace.embeddings_enabled,
workspace.embeddings_disabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
	enqueueCmd.Flags().StringP("workspace", "w", "", "Workspace ID")
	enqueueCmd.MarkFlagRequired("workspace")
	enqueueCmd.Flags().StringSliceP("document", "d", nil, "Document ID (repeatable)")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	workspaceID, _ := cmd.Flags().GetString("workspace")
	documentIDs, _ := cmd.Flags().GetStringSlice("document")

	if err := requireSharedQueue("enqueue", viper.GetString("queue.driver")); err != nil {
		return err
	}

	c, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer c.Close()

	record, err := c.jobs.PublishEvent(context.Background(), indexing.Event(args[0]), workspaceID, documentIDs)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	fmt.Printf("Successfully enqueued %s job with ID: %d\n", record.Kind, record.ID)
	return nil
}
