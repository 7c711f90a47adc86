package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"warehouse-sync-agent/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// Send is only called from the hub's writer goroutine for this client.
type wsClient struct {
	conn *websocket.Conn
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false
	}
	return true
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// WebSocket upgrades the connection and registers the client to the hub.
// It requires JWT middleware to have set "operator_id" in context.
// A snapshot of counts and connectivity is queued first so a reconnecting terminal is up to date.
func (h *Handler) WebSocket(c *gin.Context) {
	operatorID := c.GetString("operator_id")
	if operatorID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Operator not authorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger().Warn("websocket upgrade", "error", err)
		return
	}

	client := &wsClient{conn: conn}
	var greeting [][]byte
	if payload, err := realtimeSnapshot(h); err == nil {
		greeting = append(greeting, payload)
	}
	h.Hub.Register(operatorID, client, greeting...)
	h.logger().Debug("websocket connected", "operator", operatorID, "clients", h.Hub.Connected())

	// Heartbeat: send periodic pings; close on error
	pingTicker := time.NewTicker(30 * time.Second)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()
	defer func() {
		close(done)
		pingTicker.Stop()
		h.Hub.Unregister(operatorID, client)
		client.Close()
	}()

	// Reader loop: drain messages and keep connection alive via pong handler
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func realtimeSnapshot(h *Handler) ([]byte, error) {
	return json.Marshal(realtime.Message{
		Type: realtime.TypeSnapshot,
		Data: gin.H{
			"connectivity": h.Monitor.Status(),
			"sync":         h.Outbox.Stats(),
			"counts":       h.Ledger.Counts(),
		},
	})
}
