package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docsearch/src/core/aisearch"
	"docsearch/src/core/indexing"
	"docsearch/src/infrastructure/job"
	"docsearch/src/infrastructure/log"
)

type eventRequest struct {
	Event       string   `json:"event" binding:"required"`
	WorkspaceID string   `json:"workspaceId"`
	DocumentIDs []string `json:"documentIds"`
}

type jobResponse struct {
	JobID  string        `json:"jobId"`
	Kind   string        `json:"kind"`
	Status job.JobStatus `json:"status"`
}

// IngestEvent queues the indexing job for a document lifecycle event.
func (h *Handler) IngestEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, bindError(err))
		return
	}
	h.publish(c, indexing.Event(req.Event), workspaceID(c, req.WorkspaceID), req.DocumentIDs)
}

func (h *Handler) EnableWorkspace(c *gin.Context) {
	h.publish(c, indexing.EventWorkspaceEnabled, c.Param("workspaceId"), nil)
}

func (h *Handler) DisableWorkspace(c *gin.Context) {
	h.publish(c, indexing.EventWorkspaceDisabled, c.Param("workspaceId"), nil)
}

func (h *Handler) publish(c *gin.Context, event indexing.Event, workspaceID string, documentIDs []string) {
	if err := validateIDs(workspaceID, documentIDs); err != nil {
		sendError(c, err)
		return
	}

	j, err := indexing.JobForEvent(event, workspaceID, documentIDs)
	if err != nil {
		sendError(c, &aisearch.ValidationError{Field: "event", Reason: err.Error()})
		return
	}

	record, err := h.jobs.EnqueueJob(c.Request.Context(), j)
	if err != nil {
		log.Error(err, "failed to enqueue indexing job", "event", event, "workspace", workspaceID)
		sendError(c, err)
		return
	}

	sendJSON(c, http.StatusAccepted, jobResponse{
		JobID:  strconv.FormatInt(record.ID, 10),
		Kind:   record.Kind,
		Status: record.Status,
	})
}

func validateIDs(workspaceID string, documentIDs []string) error {
	if _, err := uuid.Parse(workspaceID); err != nil {
		return &aisearch.ValidationError{Field: "workspaceId", Reason: "must be a UUID"}
	}
	for i, id := range documentIDs {
		if _, err := uuid.Parse(id); err != nil {
			return &aisearch.ValidationError{Field: fmt.Sprintf("documentIds[%d]", i), Reason: "must be a UUID"}
		}
	}
	return nil
}
