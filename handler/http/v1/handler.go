package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docsearch/src/core/aisearch"
	"docsearch/src/core/indexing"
	"docsearch/src/infrastructure/job"
)

const workspaceHeader = "X-Workspace-Id"

type AskService interface {
	Ask(ctx context.Context, req aisearch.AskRequest) (<-chan aisearch.StreamEvent, error)
}

type GenerateService interface {
	Generate(ctx context.Context, req aisearch.GenerateRequest) (string, error)
	GenerateStream(ctx context.Context, req aisearch.GenerateRequest) (<-chan aisearch.StreamEvent, error)
}

type StatusService interface {
	Status(ctx context.Context, workspaceID string) *aisearch.Status
}

// JobEnqueuer queues indexing jobs for lifecycle events.
type JobEnqueuer interface {
	EnqueueJob(ctx context.Context, j indexing.Job) (*job.Job, error)
}

type Handler struct {
	askService      AskService
	generateService GenerateService
	statusService   StatusService
	jobs            JobEnqueuer
}

func NewHandler(askService AskService, generateService GenerateService, statusService StatusService, jobs JobEnqueuer) *Handler {
	return &Handler{
		askService:      askService,
		generateService: generateService,
		statusService:   statusService,
		jobs:            jobs,
	}
}

// RegisterRoutes registers all AI routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	ai := r.Group("/api/ai")

	ai.POST("/generate", h.Generate)
	ai.POST("/generate/stream", h.GenerateStream)
	ai.POST("/ask", h.Ask)
	ai.GET("/status", h.Status)

	ai.POST("/events", h.IngestEvent)
	ai.POST("/workspaces/:workspaceId/embeddings", h.EnableWorkspace)
	ai.DELETE("/workspaces/:workspaceId/embeddings", h.DisableWorkspace)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// sendError maps err to a response. Unexpected errors are reported with a
// generic message; their detail stays in the logs.
func sendError(c *gin.Context, err error) {
	var (
		validationErr *aisearch.ValidationError
		configErr     *aisearch.ConfigurationError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: validationErr.Error(),
			Details: gin.H{"field": validationErr.Field},
		})
	case errors.As(err, &configErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "CONFIGURATION_ERROR",
			Message: configErr.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: aisearch.ErrServiceFailure.Error(),
		})
	}
}

func bindError(err error) error {
	return &aisearch.ValidationError{Field: "body", Reason: err.Error()}
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// workspaceID prefers an explicit value over the X-Workspace-Id header.
func workspaceID(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return c.GetHeader(workspaceHeader)
}
