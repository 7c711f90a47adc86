package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Client represents a single websocket client connection.
// The network conn itself is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Message is the envelope pushed to every connected operator.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	TypeNotification = "notification"
	TypeConnectivity = "connectivity"
	TypeSnapshot     = "snapshot"
)

// SendBuffer is the number of messages queued per client before it is considered stalled.
const SendBuffer = 64

// subscriber owns the outbound queue of one client. Only its writer goroutine calls client.Send.
type subscriber struct {
	client    Client
	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			// a failed write is cleaned up by the client's own handler
			_ = s.client.Send(msg)
		}
	}
}

func (s *subscriber) stop() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub maintains active operator connections and fans events out to them.
// Publishing never waits on a client: each client is written to by its own goroutine.
type Hub struct {
	mu                  sync.RWMutex
	operatorIDToClients map[string]map[Client]*subscriber
	logger              *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		operatorIDToClients: make(map[string]map[Client]*subscriber),
		logger:              logger,
	}
}

// Register adds a client under an operator ID. The optional greeting messages are queued
// ahead of any broadcast made after registration.
func (h *Hub) Register(operatorID string, client Client, greeting ...[]byte) {
	sub := &subscriber{
		client: client,
		queue:  make(chan []byte, SendBuffer+len(greeting)),
		done:   make(chan struct{}),
	}
	for _, msg := range greeting {
		sub.queue <- msg
	}

	h.mu.Lock()
	if _, ok := h.operatorIDToClients[operatorID]; !ok {
		h.operatorIDToClients[operatorID] = make(map[Client]*subscriber)
	}
	if old, ok := h.operatorIDToClients[operatorID][client]; ok {
		old.stop()
	}
	h.operatorIDToClients[operatorID][client] = sub
	h.mu.Unlock()

	go sub.writeLoop()
}

// Unregister removes a client and stops its writer; if the operator has no more clients, cleans up map.
func (h *Hub) Unregister(operatorID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.operatorIDToClients[operatorID]
	if !ok {
		return
	}
	if sub, ok := clients[client]; ok {
		sub.stop()
		delete(clients, client)
	}
	if len(clients) == 0 {
		delete(h.operatorIDToClients, operatorID)
	}
}

// Connected returns the number of registered clients.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.operatorIDToClients {
		n += len(clients)
	}
	return n
}

// Broadcast queues a raw message for every client of every operator.
// A client whose queue is full is closed; its handler then unregisters it.
func (h *Hub) Broadcast(message []byte) {
	var stalled []*subscriber
	h.mu.RLock()
	for operatorID, clients := range h.operatorIDToClients {
		for _, sub := range clients {
			select {
			case <-sub.done:
				continue
			default:
			}
			select {
			case sub.queue <- message:
			default:
				h.logger.Warn("realtime: client stalled, disconnecting", "operator", operatorID)
				stalled = append(stalled, sub)
			}
		}
	}
	h.mu.RUnlock()

	for _, sub := range stalled {
		sub.stop()
		go sub.client.Close()
	}
}

// Publish wraps data in a Message and broadcasts it.
func (h *Hub) Publish(msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("realtime: marshal message", "type", msgType, "error", err)
		return
	}
	h.Broadcast(payload)
}
