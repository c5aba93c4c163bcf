package embeddingctrl

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the pgvector extension and the embeddings table with a
// vector column of the given dimension. It is safe to run repeatedly; an
// existing table keeps its dimension.
func Migrate(ctx context.Context, db *gorm.DB, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id bigint PRIMARY KEY,
			document_id uuid NOT NULL,
			workspace_id uuid NOT NULL,
			space_id uuid,
			model_name text NOT NULL,
			model_dimensions integer NOT NULL,
			embedding vector(%d) NOT NULL,
			chunk_index integer NOT NULL DEFAULT 0,
			chunk_start integer NOT NULL DEFAULT 0,
			chunk_length integer NOT NULL DEFAULT 0,
			content text NOT NULL DEFAULT '',
			content_hash text NOT NULL DEFAULT '',
			metadata jsonb DEFAULT '{}'::jsonb,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			deleted_at timestamptz
		)`, TableName, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_workspace_document ON %[1]s (workspace_id, document_id)`, TableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_space_id ON %[1]s (space_id)`, TableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_deleted_at ON %[1]s (deleted_at)`, TableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s (workspace_id, created_at DESC)`, TableName),
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to migrate %s: %w", TableName, err)
			}
		}
		return nil
	})
}
