package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status reports indexing health. Parts that cannot be computed are omitted.
func (h *Handler) Status(c *gin.Context) {
	status := h.statusService.Status(c.Request.Context(), workspaceID(c, c.Query("workspaceId")))
	sendJSON(c, http.StatusOK, status)
}
