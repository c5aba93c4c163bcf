// Package pagectrl reads documents from the document store's pages and
// spaces tables. It never writes to them.
package pagectrl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"docsearch/src/core/aisearch"
)

type Page struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	SlugID      *string        `json:"slug_id"`
	Title       *string        `json:"title"`
	TextContent *string        `json:"text_content"`
	SpaceID     string         `gorm:"type:uuid" json:"space_id"`
	WorkspaceID string         `gorm:"type:uuid" json:"workspace_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty"`
}

func (Page) TableName() string {
	return "pages"
}

type PageService struct {
	db *gorm.DB
}

var _ aisearch.DocumentProvider = (*PageService)(nil)

func NewPageService(db *gorm.DB) *PageService {
	return &PageService{db: db}
}

type pageRow struct {
	Page
	SpaceSlug *string
}

// GetDocuments returns the live pages among ids. Ids that are not UUIDs
// cannot name a page and are ignored.
func (s *PageService) GetDocuments(ctx context.Context, workspaceID string, ids []string) ([]aisearch.Document, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []aisearch.Document{}, nil
	}

	var rows []pageRow
	result := s.db.WithContext(ctx).
		Table("pages AS p").
		Select("p.*, s.slug AS space_slug").
		Joins("LEFT JOIN spaces s ON s.id = p.space_id").
		Where("p.workspace_id = ? AND p.id IN ? AND p.deleted_at IS NULL", workspaceID, valid).
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get pages: %v", result.Error)
	}

	docs := make([]aisearch.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, aisearch.Document{
			ID:          r.ID,
			Title:       deref(r.Title),
			TextContent: deref(r.TextContent),
			SpaceID:     r.SpaceID,
			SpaceSlug:   deref(r.SpaceSlug),
			WorkspaceID: r.WorkspaceID,
			SlugID:      deref(r.SlugID),
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return docs, nil
}

func (s *PageService) ListDocumentIDs(ctx context.Context, workspaceID string) ([]string, error) {
	var ids []string
	result := s.db.WithContext(ctx).
		Model(&Page{}).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list pages: %v", result.Error)
	}
	return ids, nil
}

func (s *PageService) CountDocuments(ctx context.Context, workspaceID string) (int64, error) {
	var n int64
	result := s.db.WithContext(ctx).Model(&Page{}).Where("workspace_id = ?", workspaceID).Count(&n)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count pages: %v", result.Error)
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
