package outbox

import (
	"context"
	"encoding/json"
	"net/http"

	"warehouse-sync-agent/internal/gateway"
	"warehouse-sync-agent/internal/models"
)

// Writer is the write side of the request gateway.
type Writer interface {
	Write(ctx context.Context, req gateway.WriteRequest) (json.RawMessage, error)
}

// Endpoints maps every kind to the remote endpoint that commits it.
var Endpoints = map[models.OperationKind]string{
	models.KindQuickAddition:    "/inventory/quick-add",
	models.KindStockAdjustment:  "/inventory/adjustments",
	models.KindInternalTransfer: "/inventory/transfers",
	models.KindItemCorrection:   "/inventory/corrections",
}

// NewHandlers binds every kind to a POST of its payload through w.
func NewHandlers(w Writer) Handlers {
	handlers := make(Handlers, len(Endpoints))
	for kind, endpoint := range Endpoints {
		handlers[kind] = postTo(w, endpoint)
	}
	return handlers
}

func postTo(w Writer, endpoint string) Handler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return w.Write(ctx, gateway.WriteRequest{
			Method:   http.MethodPost,
			Endpoint: endpoint,
			Body:     payload,
		})
	}
}
