package handlers

import (
	"log/slog"

	"warehouse-sync-agent/internal/auth"
	"warehouse-sync-agent/internal/cache"
	"warehouse-sync-agent/internal/connectivity"
	"warehouse-sync-agent/internal/gateway"
	"warehouse-sync-agent/internal/ledger"
	"warehouse-sync-agent/internal/outbox"
	"warehouse-sync-agent/internal/realtime"
)

// Handler holds the components the HTTP surface exposes.
type Handler struct {
	Tokens       *auth.Tokens
	PasswordHash string
	Outbox       *outbox.Outbox
	Ledger       *ledger.Ledger
	Monitor      *connectivity.Monitor
	Cache        *cache.ResponseCache
	Gateway      *gateway.Gateway
	Hub          *realtime.Hub
	Logger       *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
