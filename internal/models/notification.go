package models

import "time"

// Category represents the severity of a NotificationEntry
type Category string

const (
	CategoryInfo    Category = "info"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
)

// NotificationEntry is one user-visible line of the event ledger
type NotificationEntry struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Detail    any       `json:"detail,omitempty"`
}

// OperationDetail is attached to notifications about outbox activity
type OperationDetail struct {
	OperationID string        `json:"operationId"`
	Kind        OperationKind `json:"kind"`
	Attempts    int           `json:"attempts"`
	MaxAttempts int           `json:"maxAttempts"`
	Error       string        `json:"error,omitempty"`
}
