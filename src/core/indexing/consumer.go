// Package indexing keeps the embedding store consistent with document
// content by reacting to lifecycle jobs.
//
// Every write replaces a document's whole chunk set, so handlers are
// idempotent under at-least-once delivery. Work on one document is
// serialized inside a process; two workers reindexing the same document
// concurrently still race and the last write wins.
package indexing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"docsearch/src/core/aisearch"
	"docsearch/src/core/chunker"
	"docsearch/src/infrastructure/log"
)

// Consumer executes indexing jobs.
type Consumer struct {
	settings aisearch.Settings
	store    aisearch.EmbeddingStore
	docs     aisearch.DocumentProvider
	embedder aisearch.Embedder
	locks    *keyedMutex
	logger   logr.Logger
}

func NewConsumer(settings aisearch.Settings, store aisearch.EmbeddingStore, docs aisearch.DocumentProvider, embedder aisearch.Embedder) *Consumer {
	return &Consumer{
		settings: settings.WithDefaults(),
		store:    store,
		docs:     docs,
		embedder: embedder,
		locks:    newKeyedMutex(),
		logger:   log.WithName("indexing"),
	}
}

// Handle runs job. A missing schema or configuration fails with an error for
// which aisearch.IsFatal reports true.
func (c *Consumer) Handle(ctx context.Context, job Job) error {
	if err := c.ensureTable(ctx); err != nil {
		return err
	}

	switch j := job.(type) {
	case WorkspaceCreate:
		return c.createWorkspace(ctx, j)
	case WorkspaceDelete:
		if err := c.store.DeleteWorkspaceChunks(ctx, j.WorkspaceID); err != nil {
			return fmt.Errorf("failed to delete workspace chunks: %w", err)
		}
		return nil
	case DocumentReindex:
		return c.ReindexDocuments(ctx, j.WorkspaceID, j.DocumentIDs)
	case DocumentRemove:
		return c.removeDocuments(ctx, j)
	default:
		return fmt.Errorf("unhandled job kind: %s", job.Kind())
	}
}

func (c *Consumer) ensureTable(ctx context.Context) error {
	exists, err := c.store.TableExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to probe embeddings table: %w", err)
	}
	if !exists {
		return aisearch.ErrSchemaMissing
	}
	return nil
}

func (c *Consumer) createWorkspace(ctx context.Context, job WorkspaceCreate) error {
	ids, err := c.docs.ListDocumentIDs(ctx, job.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to list workspace documents: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	return c.ReindexDocuments(ctx, job.WorkspaceID, ids)
}

// ReindexDocuments replaces the chunks of each document with chunks of its
// current text. Documents that no longer exist or are soft-deleted lose
// their chunks. Each document is loaded and written under its own lock so a
// concurrent job on the same document never sees stale text.
func (c *Consumer) ReindexDocuments(ctx context.Context, workspaceID string, documentIDs []string) error {
	if err := c.settings.RequireEmbedding(); err != nil {
		return err
	}

	for _, id := range documentIDs {
		if err := c.reindexDocument(ctx, workspaceID, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) reindexDocument(ctx context.Context, workspaceID, documentID string) error {
	unlock := c.locks.Lock(workspaceID + "/" + documentID)
	defer unlock()

	docs, err := c.docs.GetDocuments(ctx, workspaceID, []string{documentID})
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	if len(docs) == 0 {
		c.logger.V(1).Info("document gone; dropping chunks", "document", documentID)
		if err := c.store.DeleteDocumentChunks(ctx, []string{documentID}, workspaceID); err != nil {
			return fmt.Errorf("failed to delete chunks of missing document %s: %w", documentID, err)
		}
		return nil
	}
	doc := docs[0]

	pieces := chunker.Split(doc.TextContent, c.settings.ChunkSize)
	if len(pieces) == 0 {
		c.logger.V(1).Info("no text to embed", "document", doc.ID)
		if err := c.store.ReplaceDocumentChunks(ctx, doc.ID, workspaceID, doc.SpaceID, nil); err != nil {
			return fmt.Errorf("failed to clear chunks of document %s: %w", doc.ID, err)
		}
		return nil
	}

	model := c.settings.EmbeddingModel
	c.logger.Info("embedding document", "document", doc.ID, "workspace", workspaceID, "chunks", len(pieces), "model", model)

	inputs := make([]aisearch.ChunkInput, 0, len(pieces))
	offset := 0
	for i, piece := range pieces {
		c.logger.V(1).Info("embedding chunk", "document", doc.ID, "chunk", i, "length", len(piece))

		vector, err := c.embedder.Embed(ctx, piece, model)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of document %s: %w", i, doc.ID, err)
		}
		if len(vector) != c.settings.EmbeddingDimension {
			return &aisearch.ProviderCallError{
				Provider: "embedding",
				Op:       "embed",
				Err:      fmt.Errorf("model %s returned %d dimensions, want %d", model, len(vector), c.settings.EmbeddingDimension),
			}
		}

		length := utf8.RuneCountInString(piece)
		sum := sha256.Sum256([]byte(piece))
		inputs = append(inputs, aisearch.ChunkInput{
			Index:           i,
			Start:           offset,
			Length:          length,
			Content:         piece,
			ContentHash:     hex.EncodeToString(sum[:]),
			Embedding:       vector,
			ModelName:       model,
			ModelDimensions: c.settings.EmbeddingDimension,
			Metadata: aisearch.ChunkMetadata{
				DocumentID: doc.ID,
				SpaceID:    doc.SpaceID,
				SlugID:     doc.SlugID,
				Title:      doc.Title,
				ChunkIndex: i,
			},
		})
		offset += length + 1
	}

	if err := c.store.ReplaceDocumentChunks(ctx, doc.ID, workspaceID, doc.SpaceID, inputs); err != nil {
		return fmt.Errorf("failed to store chunks of document %s: %w", doc.ID, err)
	}
	return nil
}

func (c *Consumer) removeDocuments(ctx context.Context, job DocumentRemove) error {
	for _, id := range job.DocumentIDs {
		unlock := c.locks.Lock(job.WorkspaceID + "/" + id)
		err := c.store.DeleteDocumentChunks(ctx, []string{id}, job.WorkspaceID)
		unlock()
		if err != nil {
			return fmt.Errorf("failed to delete chunks of document %s: %w", id, err)
		}
	}
	return nil
}
