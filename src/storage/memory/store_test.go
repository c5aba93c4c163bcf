package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/src/core/aisearch"
	"docsearch/src/storage/memory"
)

const ws = "ws-1"

func chunks(vectors ...[]float32) []aisearch.ChunkInput {
	out := make([]aisearch.ChunkInput, len(vectors))
	for i, v := range vectors {
		out[i] = aisearch.ChunkInput{Index: i, Content: "chunk", Embedding: v}
	}
	return out
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()
	s.PutDocument(aisearch.Document{ID: "a", Title: "Alpha", SlugID: "alpha", SpaceID: "sp1", SpaceSlug: "eng", WorkspaceID: ws})
	s.PutDocument(aisearch.Document{ID: "b", Title: "Beta", SpaceID: "sp2", WorkspaceID: ws})
	s.PutDocument(aisearch.Document{ID: "c", Title: "Other", WorkspaceID: "ws-2"})

	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a", ws, "sp1", chunks([]float32{0, 0}, []float32{3, 4})))
	require.NoError(t, s.ReplaceDocumentChunks(ctx, "b", ws, "sp2", chunks([]float32{1, 0})))
	require.NoError(t, s.ReplaceDocumentChunks(ctx, "c", "ws-2", "", chunks([]float32{0, 0})))
	return s
}

func TestNearestNeighbors(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	hits, err := s.NearestNeighbors(ctx, []float32{0, 0}, ws, "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"a", "b", "a"}, []string{hits[0].DocumentID, hits[1].DocumentID, hits[2].DocumentID})
	assert.Equal(t, []float64{0, 1, 5}, []float64{hits[0].Distance, hits[1].Distance, hits[2].Distance})
	assert.Equal(t, "Alpha", hits[0].Title)
	assert.Equal(t, "eng", hits[0].SpaceSlug)

	hits, err = s.NearestNeighbors(ctx, []float32{0, 0}, ws, "sp2", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].DocumentID)

	hits, err = s.NearestNeighbors(ctx, []float32{0, 0}, ws, "", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSoftDeletedDocumentsAreHidden(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	s.SoftDeleteDocument("b", time.Now())

	hits, err := s.NearestNeighbors(ctx, []float32{1, 0}, ws, "", 10)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "b", h.DocumentID)
	}

	ids, err := s.ListDocumentIDs(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	docs, err := s.GetDocuments(ctx, ws, []string{"a", "b", "missing"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)

	// chunks of a soft-deleted document stay until a remove job runs
	assert.Len(t, s.Chunks(ws, "b"), 1)
}

func TestReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a", ws, "sp1", chunks([]float32{9, 9})))
	assert.Len(t, s.Chunks(ws, "a"), 1)

	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a", ws, "sp1", nil))
	assert.Empty(t, s.Chunks(ws, "a"))

	require.NoError(t, s.DeleteDocumentChunks(ctx, []string{"b"}, "ws-2"))
	assert.Len(t, s.Chunks(ws, "b"), 1, "workspace scoped")

	require.NoError(t, s.DeleteWorkspaceChunks(ctx, ws))
	n, err := s.CountChunks(ctx, ws)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, s.Chunks("ws-2", "c"), 1)
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	chunkCount, err := s.CountChunks(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, int64(3), chunkCount)

	indexed, err := s.CountIndexedDocuments(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, int64(2), indexed)

	total, err := s.CountDocuments(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	perDoc, err := s.ChunkCountsByDocument(ctx, []string{"a", "b", "c"}, ws)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, perDoc)
}

func TestRecentChunks(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	recent, err := s.RecentChunks(ctx, ws, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].DocumentID)
	assert.Equal(t, "Beta", recent[0].Title)
	assert.Equal(t, "a", recent[1].DocumentID)
	assert.Equal(t, 1, recent[1].ChunkIndex)
}

func TestTableExists(t *testing.T) {
	s := memory.NewStore()
	ok, err := s.TableExists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	s.SetSchemaReady(false)
	ok, err = s.TableExists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
