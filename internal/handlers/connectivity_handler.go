package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConnectivityRequest relays a platform online/offline event
type ConnectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// GetConnectivity handles GET /api/connectivity
func (h *Handler) GetConnectivity(c *gin.Context) {
	c.JSON(http.StatusOK, h.Monitor.Status())
}

// SetConnectivity handles POST /api/connectivity
func (h *Handler) SetConnectivity(c *gin.Context) {
	var req ConnectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request must include online: true|false"})
		return
	}
	changed := h.Monitor.Set(*req.Online)
	c.JSON(http.StatusOK, gin.H{
		"changed": changed,
		"status":  h.Monitor.Status(),
	})
}
