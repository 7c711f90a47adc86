package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"warehouse-sync-agent/internal/models"
	"warehouse-sync-agent/internal/outbox"

	"github.com/gin-gonic/gin"
)

const maxPayloadBytes = 1 << 20

// OperationResponse is returned by SubmitOperation
type OperationResponse struct {
	Accepted    bool            `json:"accepted"`
	Deferred    bool            `json:"deferred"`
	OperationID string          `json:"operationId,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

/*
*
SubmitOperation handles POST /api/operations/:kind
The body is the mutation payload, forwarded untouched.
200 when the remote API confirmed it, 202 when it was queued for a later sync.
*/
func (h *Handler) SubmitOperation(c *gin.Context) {
	kind := models.OperationKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown operation kind",
			"kinds": models.OperationKinds,
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	if len(body) > maxPayloadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload must be valid JSON"})
		return
	}

	res, err := h.Outbox.Submit(c.Request.Context(), kind, body, nil)
	if err != nil {
		if errors.Is(err, outbox.ErrUnknownKind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger().Error("submit operation", "kind", kind, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit operation"})
		return
	}

	resp := OperationResponse{
		Accepted:    res.Accepted,
		Deferred:    res.Deferred,
		OperationID: res.OperationID,
		Result:      res.Result,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	status := http.StatusOK
	if res.Deferred {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}
