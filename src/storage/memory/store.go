// Package memory keeps embeddings and documents in process memory for the
// tests of packages that consume aisearch.EmbeddingStore and
// aisearch.DocumentProvider.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"docsearch/src/core/aisearch"
)

var (
	_ aisearch.EmbeddingStore   = (*Store)(nil)
	_ aisearch.DocumentProvider = (*Store)(nil)
)

type chunkKey struct {
	workspaceID string
	documentID  string
}

type chunkRow struct {
	id        int64
	spaceID   string
	input     aisearch.ChunkInput
	createdAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	schemaReady bool
	documents   map[string]aisearch.Document
	chunks      map[chunkKey][]chunkRow
	nextID      int64
	now         func() time.Time
}

// NewStore returns an empty store whose schema is ready.
func NewStore() *Store {
	return &Store{
		schemaReady: true,
		documents:   make(map[string]aisearch.Document),
		chunks:      make(map[chunkKey][]chunkRow),
		now:         time.Now,
	}
}

// SetSchemaReady controls what TableExists reports.
func (s *Store) SetSchemaReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaReady = ready
}

// PutDocument inserts or replaces a document.
func (s *Store) PutDocument(doc aisearch.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = doc
}

// SoftDeleteDocument marks a document deleted without touching its chunks.
func (s *Store) SoftDeleteDocument(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.documents[id]; ok {
		doc.DeletedAt = &at
		s.documents[id] = doc
	}
}

// Chunks returns the stored chunks of a document in index order.
func (s *Store) Chunks(workspaceID, documentID string) []aisearch.ChunkInput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.chunks[chunkKey{workspaceID, documentID}]
	out := make([]aisearch.ChunkInput, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.input)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (s *Store) TableExists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schemaReady, nil
}

func (s *Store) ReplaceDocumentChunks(_ context.Context, documentID, workspaceID, spaceID string, chunks []aisearch.ChunkInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chunkKey{workspaceID, documentID}
	if len(chunks) == 0 {
		delete(s.chunks, key)
		return nil
	}

	rows := make([]chunkRow, 0, len(chunks))
	for _, c := range chunks {
		s.nextID++
		rows = append(rows, chunkRow{id: s.nextID, spaceID: spaceID, input: c, createdAt: s.now()})
	}
	s.chunks[key] = rows
	return nil
}

func (s *Store) DeleteDocumentChunks(_ context.Context, documentIDs []string, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range documentIDs {
		delete(s.chunks, chunkKey{workspaceID, id})
	}
	return nil
}

func (s *Store) DeleteWorkspaceChunks(_ context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.chunks {
		if key.workspaceID == workspaceID {
			delete(s.chunks, key)
		}
	}
	return nil
}

func (s *Store) NearestNeighbors(_ context.Context, vector []float32, workspaceID, spaceID string, limit int) ([]aisearch.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		id       int64
		neighbor aisearch.Neighbor
	}
	var hits []scored
	for key, rows := range s.chunks {
		if key.workspaceID != workspaceID {
			continue
		}
		doc, ok := s.liveDocument(key)
		if !ok {
			continue
		}
		for _, r := range rows {
			if spaceID != "" && r.spaceID != spaceID {
				continue
			}
			hits = append(hits, scored{id: r.id, neighbor: aisearch.Neighbor{
				ChunkID:      r.id,
				DocumentID:   key.documentID,
				SpaceID:      r.spaceID,
				ChunkIndex:   r.input.Index,
				Content:      r.input.Content,
				Distance:     l2(vector, r.input.Embedding),
				Title:        doc.Title,
				SlugID:       doc.SlugID,
				SpaceSlug:    doc.SpaceSlug,
				DocumentText: doc.TextContent,
			}})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].neighbor.Distance != hits[j].neighbor.Distance {
			return hits[i].neighbor.Distance < hits[j].neighbor.Distance
		}
		return hits[i].id < hits[j].id
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]aisearch.Neighbor, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.neighbor)
	}
	return out, nil
}

func (s *Store) ChunkCountsByDocument(_ context.Context, documentIDs []string, workspaceID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int, len(documentIDs))
	for _, id := range documentIDs {
		if n := len(s.chunks[chunkKey{workspaceID, id}]); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (s *Store) CountChunks(_ context.Context, workspaceID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for key, rows := range s.chunks {
		if key.workspaceID == workspaceID {
			n += int64(len(rows))
		}
	}
	return n, nil
}

func (s *Store) CountIndexedDocuments(_ context.Context, workspaceID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for key, rows := range s.chunks {
		if key.workspaceID == workspaceID && len(rows) > 0 {
			n++
		}
	}
	return n, nil
}

func (s *Store) RecentChunks(_ context.Context, workspaceID string, limit int) ([]aisearch.RecentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type recent struct {
		id    int64
		chunk aisearch.RecentChunk
	}
	var all []recent
	for key, rows := range s.chunks {
		if key.workspaceID != workspaceID {
			continue
		}
		doc, ok := s.liveDocument(key)
		if !ok {
			continue
		}
		for _, r := range rows {
			all = append(all, recent{id: r.id, chunk: aisearch.RecentChunk{
				DocumentID: key.documentID,
				Title:      doc.Title,
				SlugID:     doc.SlugID,
				SpaceSlug:  doc.SpaceSlug,
				ChunkIndex: r.input.Index,
				CreatedAt:  r.createdAt,
			}})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].chunk.CreatedAt.Equal(all[j].chunk.CreatedAt) {
			return all[i].chunk.CreatedAt.After(all[j].chunk.CreatedAt)
		}
		return all[i].id > all[j].id
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]aisearch.RecentChunk, 0, len(all))
	for _, r := range all {
		out = append(out, r.chunk)
	}
	return out, nil
}

func (s *Store) GetDocuments(_ context.Context, workspaceID string, ids []string) ([]aisearch.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]aisearch.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.liveDocument(chunkKey{workspaceID, id}); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *Store) ListDocumentIDs(_ context.Context, workspaceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, doc := range s.documents {
		if doc.WorkspaceID == workspaceID && doc.DeletedAt == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) CountDocuments(ctx context.Context, workspaceID string) (int64, error) {
	ids, err := s.ListDocumentIDs(ctx, workspaceID)
	return int64(len(ids)), err
}

// liveDocument must be called with the lock held.
func (s *Store) liveDocument(key chunkKey) (aisearch.Document, bool) {
	doc, ok := s.documents[key.documentID]
	if !ok || doc.WorkspaceID != key.workspaceID || doc.DeletedAt != nil {
		return aisearch.Document{}, false
	}
	return doc, true
}

// l2 matches pgvector's <-> operator.
func l2(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
