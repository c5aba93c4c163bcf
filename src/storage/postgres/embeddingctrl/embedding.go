package embeddingctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"docsearch/src/core/aisearch"
)

const (
	TableName = "document_embeddings"

	snowflakeNode = 4
	insertBatch   = 100
)

// Embedding is one indexed chunk of a document.
type Embedding struct {
	ID              int64                                     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DocumentID      string                                    `gorm:"type:uuid;not null" json:"document_id"`
	WorkspaceID     string                                    `gorm:"type:uuid;not null" json:"workspace_id"`
	SpaceID         *string                                   `gorm:"type:uuid" json:"space_id,omitempty"`
	ModelName       string                                    `gorm:"not null" json:"model_name"`
	ModelDimensions int                                       `gorm:"not null" json:"model_dimensions"`
	Embedding       pgvector.Vector                           `gorm:"type:vector;not null" json:"-"`
	ChunkIndex      int                                       `gorm:"not null;default:0" json:"chunk_index"`
	ChunkStart      int                                       `gorm:"not null;default:0" json:"chunk_start"`
	ChunkLength     int                                       `gorm:"not null;default:0" json:"chunk_length"`
	Content         string                                    `gorm:"not null;default:''" json:"content"`
	ContentHash     string                                    `gorm:"not null;default:''" json:"content_hash"`
	Metadata        datatypes.JSONType[aisearch.ChunkMetadata] `gorm:"type:jsonb" json:"metadata"`
	CreatedAt       time.Time                                 `json:"created_at"`
	UpdatedAt       time.Time                                 `json:"updated_at"`
	DeletedAt       gorm.DeletedAt                            `json:"deleted_at,omitempty"`
}

func (Embedding) TableName() string {
	return TableName
}

// EmbeddingService is the pgvector-backed aisearch.EmbeddingStore. Nearest
// neighbor and recent chunk queries join the document store's pages and
// spaces tables.
type EmbeddingService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

var _ aisearch.EmbeddingStore = (*EmbeddingService)(nil)

func NewEmbeddingService(db *gorm.DB) (*EmbeddingService, error) {
	node, err := snowflake.NewNode(snowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &EmbeddingService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *EmbeddingService) TableExists(ctx context.Context) (bool, error) {
	var exists bool
	result := s.db.WithContext(ctx).Raw("SELECT to_regclass(?) IS NOT NULL", TableName).Scan(&exists)
	if result.Error != nil {
		return false, fmt.Errorf("failed to probe %s: %w", TableName, result.Error)
	}
	return exists, nil
}

func (s *EmbeddingService) ReplaceDocumentChunks(ctx context.Context, documentID, workspaceID, spaceID string, chunks []aisearch.ChunkInput) error {
	rows := make([]Embedding, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, Embedding{
			ID:              s.snowflake.Generate().Int64(),
			DocumentID:      documentID,
			WorkspaceID:     workspaceID,
			SpaceID:         nullable(spaceID),
			ModelName:       c.ModelName,
			ModelDimensions: c.ModelDimensions,
			Embedding:       pgvector.NewVector(c.Embedding),
			ChunkIndex:      c.Index,
			ChunkStart:      c.Start,
			ChunkLength:     c.Length,
			Content:         c.Content,
			ContentHash:     c.ContentHash,
			Metadata:        datatypes.NewJSONType(c.Metadata),
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Unscoped().
			Where("workspace_id = ? AND document_id = ?", workspaceID, documentID).
			Delete(&Embedding{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete chunks: %w", result.Error)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, insertBatch).Error; err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
}

func (s *EmbeddingService) DeleteDocumentChunks(ctx context.Context, documentIDs []string, workspaceID string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Unscoped().
		Where("workspace_id = ? AND document_id IN ?", workspaceID, documentIDs).
		Delete(&Embedding{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete chunks: %w", result.Error)
	}
	return nil
}

func (s *EmbeddingService) DeleteWorkspaceChunks(ctx context.Context, workspaceID string) error {
	result := s.db.WithContext(ctx).Unscoped().
		Where("workspace_id = ?", workspaceID).
		Delete(&Embedding{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete workspace chunks: %w", result.Error)
	}
	return nil
}

type neighborRow struct {
	ID          int64
	DocumentID  string
	SpaceID     *string
	ChunkIndex  int
	Content     string
	Distance    float64
	Title       *string
	SlugID      *string
	SpaceSlug   *string
	TextContent *string
}

func (s *EmbeddingService) NearestNeighbors(ctx context.Context, vector []float32, workspaceID, spaceID string, limit int) ([]aisearch.Neighbor, error) {
	query := s.db.WithContext(ctx).
		Table(TableName+" AS e").
		Select("e.id, e.document_id, e.space_id, e.chunk_index, e.content, "+
			"e.embedding <-> ?::vector AS distance, "+
			"p.title, p.slug_id, s.slug AS space_slug, p.text_content", pgvector.NewVector(vector)).
		Joins("JOIN pages p ON p.id = e.document_id").
		Joins("JOIN spaces s ON s.id = p.space_id").
		Where("e.workspace_id = ? AND e.deleted_at IS NULL AND p.deleted_at IS NULL", workspaceID)
	if spaceID != "" {
		query = query.Where("e.space_id = ?", spaceID)
	}

	var rows []neighborRow
	result := query.Order("distance ASC").Order("e.id ASC").Limit(limit).Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query nearest chunks: %w", result.Error)
	}

	neighbors := make([]aisearch.Neighbor, 0, len(rows))
	for _, r := range rows {
		neighbors = append(neighbors, aisearch.Neighbor{
			ChunkID:      r.ID,
			DocumentID:   r.DocumentID,
			SpaceID:      deref(r.SpaceID),
			ChunkIndex:   r.ChunkIndex,
			Content:      r.Content,
			Distance:     r.Distance,
			Title:        deref(r.Title),
			SlugID:       deref(r.SlugID),
			SpaceSlug:    deref(r.SpaceSlug),
			DocumentText: deref(r.TextContent),
		})
	}
	return neighbors, nil
}

func (s *EmbeddingService) ChunkCountsByDocument(ctx context.Context, documentIDs []string, workspaceID string) (map[string]int, error) {
	counts := make(map[string]int, len(documentIDs))
	if len(documentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		DocumentID string
		Count      int
	}
	result := s.db.WithContext(ctx).
		Model(&Embedding{}).
		Select("document_id, count(*) AS count").
		Where("workspace_id = ? AND document_id IN ?", workspaceID, documentIDs).
		Group("document_id").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to count chunks per document: %w", result.Error)
	}

	for _, r := range rows {
		counts[r.DocumentID] = r.Count
	}
	return counts, nil
}

func (s *EmbeddingService) CountChunks(ctx context.Context, workspaceID string) (int64, error) {
	var n int64
	result := s.db.WithContext(ctx).Model(&Embedding{}).Where("workspace_id = ?", workspaceID).Count(&n)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", result.Error)
	}
	return n, nil
}

func (s *EmbeddingService) CountIndexedDocuments(ctx context.Context, workspaceID string) (int64, error) {
	var n int64
	result := s.db.WithContext(ctx).
		Model(&Embedding{}).
		Where("workspace_id = ?", workspaceID).
		Distinct("document_id").
		Count(&n)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count indexed documents: %w", result.Error)
	}
	return n, nil
}

func (s *EmbeddingService) RecentChunks(ctx context.Context, workspaceID string, limit int) ([]aisearch.RecentChunk, error) {
	var rows []struct {
		DocumentID string
		Title      *string
		SlugID     *string
		SpaceSlug  *string
		ChunkIndex int
		CreatedAt  time.Time
	}
	result := s.db.WithContext(ctx).
		Table(TableName+" AS e").
		Select("e.document_id, p.title, p.slug_id, s.slug AS space_slug, e.chunk_index, e.created_at").
		Joins("JOIN pages p ON p.id = e.document_id").
		Joins("JOIN spaces s ON s.id = p.space_id").
		Where("e.workspace_id = ? AND e.deleted_at IS NULL AND p.deleted_at IS NULL", workspaceID).
		Order("e.created_at DESC").
		Order("e.id DESC").
		Limit(limit).
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list recent chunks: %w", result.Error)
	}

	recent := make([]aisearch.RecentChunk, 0, len(rows))
	for _, r := range rows {
		recent = append(recent, aisearch.RecentChunk{
			DocumentID: r.DocumentID,
			Title:      deref(r.Title),
			SlugID:     deref(r.SlugID),
			SpaceSlug:  deref(r.SpaceSlug),
			ChunkIndex: r.ChunkIndex,
			CreatedAt:  r.CreatedAt,
		})
	}
	return recent, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
