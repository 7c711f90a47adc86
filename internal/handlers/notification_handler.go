package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNotifications handles GET /api/notifications, newest first
func (h *Handler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data":   h.Ledger.Entries(),
		"counts": h.Ledger.Counts(),
	})
}

// GetNotificationCounts handles GET /api/notifications/counts
func (h *Handler) GetNotificationCounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.Ledger.Counts())
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if !h.Ledger.MarkRead(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, h.Ledger.Counts())
}

// MarkAllNotificationsRead handles POST /api/notifications/read
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"updated": h.Ledger.MarkAllRead()})
}

// ClearReadNotifications handles DELETE /api/notifications/read
func (h *Handler) ClearReadNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.Ledger.ClearRead()})
}

// ClearNotifications handles DELETE /api/notifications
func (h *Handler) ClearNotifications(c *gin.Context) {
	h.Ledger.ClearAll()
	c.Status(http.StatusNoContent)
}
