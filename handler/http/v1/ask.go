package v1

import (
	"github.com/gin-gonic/gin"

	"docsearch/src/core/aisearch"
)

type askRequest struct {
	Query       string `json:"query"`
	WorkspaceID string `json:"workspaceId"`
	SpaceID     string `json:"spaceId"`
}

// Ask answers a question over the workspace's documents as a server-sent
// event stream: one sources frame, content frames, then [DONE].
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, bindError(err))
		return
	}

	events, err := h.askService.Ask(c.Request.Context(), aisearch.AskRequest{
		Query:       req.Query,
		WorkspaceID: workspaceID(c, req.WorkspaceID),
		SpaceID:     req.SpaceID,
	})
	if err != nil {
		sendError(c, err)
		return
	}

	startStream(c)
	pipeEvents(c, events)
}
