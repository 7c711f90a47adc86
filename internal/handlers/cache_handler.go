package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCacheStats handles GET /api/cache/stats
func (h *Handler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cache.Stats())
}

// ClearCache handles DELETE /api/cache
func (h *Handler) ClearCache(c *gin.Context) {
	removed, err := h.Cache.Clear(c.Request.Context())
	if err != nil {
		h.logger().Error("clear cache", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
