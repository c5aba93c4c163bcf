package aisearch

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"docsearch/src/core/chunker"
	"docsearch/src/infrastructure/log"
)

// ContextRetriever produces ranked passages for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query, workspaceID, spaceID string) ([]RetrievedContext, error)
}

// Retriever embeds a query and resolves its nearest chunks into passages.
type Retriever struct {
	settings Settings
	embedder Embedder
	store    EmbeddingStore
	logger   logr.Logger
}

var _ ContextRetriever = (*Retriever)(nil)

func NewRetriever(settings Settings, embedder Embedder, store EmbeddingStore) *Retriever {
	return &Retriever{
		settings: settings.WithDefaults(),
		embedder: embedder,
		store:    store,
		logger:   log.WithName("retriever"),
	}
}

// Retrieve returns up to RetrievalLimit passages ordered by ascending distance.
// A missing workspace, embedding model or schema yields no passages rather
// than an error.
func (r *Retriever) Retrieve(ctx context.Context, query, workspaceID, spaceID string) ([]RetrievedContext, error) {
	if workspaceID == "" {
		return []RetrievedContext{}, nil
	}
	if r.settings.EmbeddingModel == "" {
		r.logger.Info("embedding model not set; skipping retrieval")
		return []RetrievedContext{}, nil
	}

	exists, err := r.store.TableExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to probe embeddings table: %w", err)
	}
	if !exists {
		r.logger.Info("embeddings table missing; skipping retrieval", "workspace", workspaceID)
		return []RetrievedContext{}, nil
	}

	vector, err := r.embedder.Embed(ctx, query, r.settings.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.store.NearestNeighbors(ctx, vector, workspaceID, spaceID, r.settings.RetrievalLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest chunks: %w", err)
	}
	if len(hits) == 0 {
		return []RetrievedContext{}, nil
	}

	documentIDs := distinctDocumentIDs(hits)
	counts, err := r.store.ChunkCountsByDocument(ctx, documentIDs, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count document chunks: %w", err)
	}

	contexts := make([]RetrievedContext, 0, len(hits))
	for _, hit := range hits {
		contexts = append(contexts, RetrievedContext{
			DocumentID: hit.DocumentID,
			SpaceID:    hit.SpaceID,
			Title:      hit.Title,
			SlugID:     hit.SlugID,
			SpaceSlug:  hit.SpaceSlug,
			Link:       r.settings.Link(hit.SlugID, hit.DocumentID),
			ChunkIndex: hit.ChunkIndex,
			ChunkCount: counts[hit.DocumentID],
			Distance:   hit.Distance,
			Text:       excerpt(hit, r.settings.ChunkSize),
		})
	}

	r.logger.Info("retrieved context chunks", "count", len(contexts), "workspace", workspaceID, "space", spaceID)
	return contexts, nil
}

// excerpt prefers the stored chunk text. Rows written without it are resolved
// by re-splitting the document's current text, which can drift if the
// document changed after indexing.
func excerpt(hit Neighbor, chunkSize int) string {
	if hit.Content != "" {
		return hit.Content
	}
	chunks := chunker.Split(hit.DocumentText, chunkSize)
	if hit.ChunkIndex >= 0 && hit.ChunkIndex < len(chunks) {
		return chunks[hit.ChunkIndex]
	}
	return truncateRunes(hit.DocumentText, chunkSize)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func distinctDocumentIDs(hits []Neighbor) []string {
	seen := make(map[string]struct{}, len(hits))
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		if _, ok := seen[hit.DocumentID]; ok {
			continue
		}
		seen[hit.DocumentID] = struct{}{}
		ids = append(ids, hit.DocumentID)
	}
	return ids
}
