package aisearch

import (
	"context"
)

// Embedder turns text into a vector using an external embedding model.
type Embedder interface {
	Embed(ctx context.Context, text string, model string) ([]float32, error)
}

// Completer generates text with an external chat model.
type Completer interface {
	// Complete returns the full response text.
	Complete(ctx context.Context, model string, messages []ChatMessage) (string, error)
	// CompleteStreaming calls onDelta once per non-empty token in arrival order
	// and returns when the provider stream ends, fails, or onDelta returns an error.
	CompleteStreaming(ctx context.Context, model string, messages []ChatMessage, onDelta func(delta string) error) error
}

// EmbeddingStore persists chunk vectors and answers nearest-neighbor queries.
type EmbeddingStore interface {
	// TableExists reports whether the backing schema object is present.
	TableExists(ctx context.Context) (bool, error)
	// ReplaceDocumentChunks atomically deletes every chunk of the document and
	// inserts chunks. An empty chunks slice leaves the document unindexed.
	ReplaceDocumentChunks(ctx context.Context, documentID, workspaceID, spaceID string, chunks []ChunkInput) error
	DeleteDocumentChunks(ctx context.Context, documentIDs []string, workspaceID string) error
	DeleteWorkspaceChunks(ctx context.Context, workspaceID string) error
	// NearestNeighbors returns non-deleted chunks of non-deleted documents in
	// the workspace (and space, when spaceID is set) by ascending distance.
	NearestNeighbors(ctx context.Context, vector []float32, workspaceID, spaceID string, limit int) ([]Neighbor, error)
	ChunkCountsByDocument(ctx context.Context, documentIDs []string, workspaceID string) (map[string]int, error)

	CountChunks(ctx context.Context, workspaceID string) (int64, error)
	CountIndexedDocuments(ctx context.Context, workspaceID string) (int64, error)
	RecentChunks(ctx context.Context, workspaceID string, limit int) ([]RecentChunk, error)
}

// DocumentProvider gives read access to documents. Soft-deleted documents are
// never returned.
type DocumentProvider interface {
	GetDocuments(ctx context.Context, workspaceID string, ids []string) ([]Document, error)
	ListDocumentIDs(ctx context.Context, workspaceID string) ([]string, error)
	CountDocuments(ctx context.Context, workspaceID string) (int64, error)
}

// QueueInspector reports indexing job counts.
type QueueInspector interface {
	QueueCounts(ctx context.Context) (*QueueCounts, error)
}

// DisabledProvider stands in for the embedding and completion clients when
// no driver is configured. Every call fails with a ConfigurationError.
type DisabledProvider struct{}

var (
	_ Embedder  = DisabledProvider{}
	_ Completer = DisabledProvider{}
)

func (DisabledProvider) Embed(context.Context, string, string) ([]float32, error) {
	return nil, errDriverDisabled()
}

func (DisabledProvider) Complete(context.Context, string, []ChatMessage) (string, error) {
	return "", errDriverDisabled()
}

func (DisabledProvider) CompleteStreaming(context.Context, string, []ChatMessage, func(string) error) error {
	return errDriverDisabled()
}

func errDriverDisabled() error {
	return &ConfigurationError{Setting: "ai.driver", Reason: "no AI driver is configured"}
}
