package handlers

import (
	"errors"
	"net/http"

	"warehouse-sync-agent/internal/outbox"

	"github.com/gin-gonic/gin"
)

// GetSyncStats handles GET /api/sync/stats
func (h *Handler) GetSyncStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Outbox.Stats())
}

// GetOperations handles GET /api/sync/operations
func (h *Handler) GetOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Outbox.Operations()})
}

/*
*
DrainNow handles POST /api/sync/drain
Runs one drain synchronously and returns its report.
409 when a drain is already running, 503 while offline.
*/
func (h *Handler) DrainNow(c *gin.Context) {
	report, err := h.Outbox.Drain(c.Request.Context())
	switch {
	case errors.Is(err, outbox.ErrDrainInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "A sync is already in progress"})
	case errors.Is(err, outbox.ErrOffline):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Remote API is unreachable"})
	case err != nil:
		h.logger().Error("drain", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"report": report, "stats": h.Outbox.Stats()})
	}
}

// ClearFailed handles DELETE /api/sync/failed
func (h *Handler) ClearFailed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.Outbox.ClearFailed()})
}

// RetryOperation handles POST /api/sync/operations/:id/retry
func (h *Handler) RetryOperation(c *gin.Context) {
	err := h.Outbox.Retry(c.Param("id"))
	switch {
	case errors.Is(err, outbox.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Operation not found"})
		return
	case errors.Is(err, outbox.ErrNotFailed):
		c.JSON(http.StatusConflict, gin.H{"error": "Operation has not failed"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.Monitor.Online() {
		h.Outbox.Trigger()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Operation requeued"})
}
