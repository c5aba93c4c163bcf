package aisearch

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"docsearch/src/infrastructure/log"
)

// StatusService aggregates indexing health. Every sub-aggregate is computed
// on its own; one that fails is logged and left out of the report.
type StatusService struct {
	settings    Settings
	store       EmbeddingStore
	docs        DocumentProvider
	queue       QueueInspector
	recentLimit int
	logger      logr.Logger
}

func NewStatusService(settings Settings, store EmbeddingStore, docs DocumentProvider, queue QueueInspector) *StatusService {
	return &StatusService{
		settings:    settings.WithDefaults(),
		store:       store,
		docs:        docs,
		queue:       queue,
		recentLimit: DefaultRecentChunks,
		logger:      log.WithName("status"),
	}
}

// Status never fails; workspaceID may be empty.
func (s *StatusService) Status(ctx context.Context, workspaceID string) *Status {
	status := &Status{Driver: s.settings.Driver}

	exists, err := s.store.TableExists(ctx)
	if err != nil {
		s.logger.V(1).Info("failed to probe embeddings table", "error", err.Error())
	}
	status.EmbeddingsTable = exists

	if s.queue != nil {
		counts, err := s.queue.QueueCounts(ctx)
		if err != nil {
			s.logger.V(1).Info("failed to read queue counts", "error", err.Error())
		} else {
			status.QueueCounts = counts
		}
	}

	if workspaceID == "" || !status.EmbeddingsTable {
		return status
	}

	if counts, err := s.documentCounts(ctx, workspaceID); err != nil {
		s.logger.V(1).Info("failed to read document counts", "workspace", workspaceID, "error", err.Error())
	} else {
		status.DocumentCounts = counts
	}

	if stats, err := s.chunkStats(ctx, workspaceID); err != nil {
		s.logger.V(1).Info("failed to read chunk stats", "workspace", workspaceID, "error", err.Error())
	} else {
		status.ChunkStats = stats
	}

	return status
}

func (s *StatusService) documentCounts(ctx context.Context, workspaceID string) (*DocumentCounts, error) {
	total, err := s.docs.CountDocuments(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	indexed, err := s.store.CountIndexedDocuments(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count indexed documents: %w", err)
	}

	return &DocumentCounts{
		TotalDocuments:             total,
		DocumentsWithEmbeddings:    indexed,
		DocumentsWithoutEmbeddings: max(0, total-indexed),
	}, nil
}

func (s *StatusService) chunkStats(ctx context.Context, workspaceID string) (*ChunkStats, error) {
	total, err := s.store.CountChunks(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	recent, err := s.store.RecentChunks(ctx, workspaceID, s.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent chunks: %w", err)
	}

	views := make([]RecentChunkView, 0, len(recent))
	for _, r := range recent {
		views = append(views, RecentChunkView{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			SlugID:     r.SlugID,
			SpaceSlug:  r.SpaceSlug,
			ChunkIndex: r.ChunkIndex,
			CreatedAt:  r.CreatedAt,
			Link:       s.settings.Link(r.SlugID, r.DocumentID),
		})
	}
	return &ChunkStats{TotalChunks: total, Recent: views}, nil
}
