package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docsearch/src/infrastructure/job"
	"docsearch/src/infrastructure/log"
	"docsearch/src/storage/postgres/embeddingctrl"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the embeddings and job tables",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	settings := aiSettings()
	if err := settings.RequireEmbedding(); err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	if err := embeddingctrl.Migrate(ctx, db, settings.EmbeddingDimension); err != nil {
		return err
	}
	if err := db.WithContext(ctx).AutoMigrate(&job.Job{}); err != nil {
		return fmt.Errorf("failed to migrate job table: %w", err)
	}

	log.Info("Migration finished", "dimension", settings.EmbeddingDimension)
	return nil
}
