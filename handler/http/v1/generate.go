package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docsearch/src/core/aisearch"
)

type generateRequest struct {
	Action  string `json:"action"`
	Content string `json:"content"`
	Prompt  string `json:"prompt"`
}

func (r generateRequest) toDomain() aisearch.GenerateRequest {
	return aisearch.GenerateRequest{
		Action:  aisearch.Action(r.Action),
		Content: r.Content,
		Prompt:  r.Prompt,
	}
}

type generateResponse struct {
	Content string `json:"content"`
}

func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, bindError(err))
		return
	}

	content, err := h.generateService.Generate(c.Request.Context(), req.toDomain())
	if err != nil {
		sendError(c, err)
		return
	}

	sendJSON(c, http.StatusOK, generateResponse{Content: content})
}

func (h *Handler) GenerateStream(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, bindError(err))
		return
	}

	events, err := h.generateService.GenerateStream(c.Request.Context(), req.toDomain())
	if err != nil {
		sendError(c, err)
		return
	}

	startStream(c)
	pipeEvents(c, events)
}
