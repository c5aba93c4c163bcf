package aisearch

import "time"

// Document is the read-only view of a document owned by the document store.
type Document struct {
	ID          string
	Title       string
	TextContent string
	SpaceID     string
	SpaceSlug   string
	WorkspaceID string
	SlugID      string
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChunkMetadata is denormalized onto every stored chunk for fast reads.
type ChunkMetadata struct {
	DocumentID string `json:"documentId"`
	SpaceID    string `json:"spaceId"`
	SlugID     string `json:"slugId,omitempty"`
	Title      string `json:"title,omitempty"`
	ChunkIndex int    `json:"chunkIndex"`
}

// ChunkInput is one embedded passage written by ReplaceDocumentChunks.
type ChunkInput struct {
	Index           int
	Start           int
	Length          int
	Content         string
	ContentHash     string
	Embedding       []float32
	ModelName       string
	ModelDimensions int
	Metadata        ChunkMetadata
}

// Neighbor is a nearest-neighbor hit joined with its document.
type Neighbor struct {
	ChunkID      int64
	DocumentID   string
	SpaceID      string
	ChunkIndex   int
	Content      string
	Distance     float64
	Title        string
	SlugID       string
	SpaceSlug    string
	DocumentText string
}

// RecentChunk is a recently created chunk with enough document data to link to it.
type RecentChunk struct {
	DocumentID string
	Title      string
	SlugID     string
	SpaceSlug  string
	ChunkIndex int
	CreatedAt  time.Time
}

// RetrievedContext is one ranked passage handed to the prompt builder.
type RetrievedContext struct {
	DocumentID string
	SpaceID    string
	Title      string
	SlugID     string
	SpaceSlug  string
	Link       string
	ChunkIndex int
	ChunkCount int
	Distance   float64
	Text       string
}

// Similarity is 1/(1+distance). It orders like distance but is not a probability.
func (c RetrievedContext) Similarity() float64 {
	return 1 / (1 + c.Distance)
}

// Source is the citation payload sent to clients before generation starts.
type Source struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	SlugID     string  `json:"slugId,omitempty"`
	SpaceSlug  string  `json:"spaceSlug,omitempty"`
	Link       string  `json:"link"`
	ChunkIndex int     `json:"chunkIndex"`
	ChunkCount int     `json:"chunkCount,omitempty"`
	Excerpt    string  `json:"excerpt"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

// AskMeta summarizes what retrieval produced.
type AskMeta struct {
	ChunkCount    int `json:"chunkCount"`
	DocumentCount int `json:"documentCount"`
}

// EventKind tags a StreamEvent.
type EventKind int

const (
	EventSources EventKind = iota + 1
	EventContent
	EventDone
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventSources:
		return "sources"
	case EventContent:
		return "content"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamEvent is one unit of a streamed answer. A stream carries at most one
// EventSources (before any EventContent) and ends with exactly one EventDone
// or EventError unless the caller cancelled.
type StreamEvent struct {
	Kind    EventKind
	Sources []Source
	Meta    AskMeta
	Content string
	Err     error
}

// Chat roles understood by completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message of a completion prompt.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueueCounts reports indexing jobs by state.
type QueueCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// DocumentCounts reports index coverage for a workspace.
type DocumentCounts struct {
	TotalDocuments             int64 `json:"totalDocuments"`
	DocumentsWithEmbeddings    int64 `json:"documentsWithEmbeddings"`
	DocumentsWithoutEmbeddings int64 `json:"documentsWithoutEmbeddings"`
}

// RecentChunkView is a RecentChunk with its resolved link.
type RecentChunkView struct {
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	SlugID     string    `json:"slugId,omitempty"`
	SpaceSlug  string    `json:"spaceSlug,omitempty"`
	ChunkIndex int       `json:"chunkIndex"`
	CreatedAt  time.Time `json:"createdAt"`
	Link       string    `json:"link"`
}

// ChunkStats reports chunk totals and the latest indexed chunks.
type ChunkStats struct {
	TotalChunks int64             `json:"totalChunks"`
	Recent      []RecentChunkView `json:"recent"`
}

// Status is the indexing health report. Sub-aggregates that could not be
// computed are left nil.
type Status struct {
	Driver          string          `json:"driver"`
	EmbeddingsTable bool            `json:"embeddingsTable"`
	QueueCounts     *QueueCounts    `json:"queueCounts,omitempty"`
	DocumentCounts  *DocumentCounts `json:"documentCounts,omitempty"`
	ChunkStats      *ChunkStats     `json:"chunkStats,omitempty"`
}
