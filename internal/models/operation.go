package models

import (
	"encoding/json"
	"time"
)

// OperationKind identifies which remote mutation a PendingOperation replays
type OperationKind string

const (
	KindQuickAddition    OperationKind = "quick-addition"
	KindStockAdjustment  OperationKind = "stock-adjustment"
	KindInternalTransfer OperationKind = "internal-transfer"
	KindItemCorrection   OperationKind = "item-correction"
)

// OperationKinds lists the closed set of kinds in a stable order
var OperationKinds = []OperationKind{
	KindQuickAddition,
	KindStockAdjustment,
	KindInternalTransfer,
	KindItemCorrection,
}

// Valid reports whether k belongs to the closed kind set
func (k OperationKind) Valid() bool {
	for _, known := range OperationKinds {
		if k == known {
			return true
		}
	}
	return false
}

// PendingOperation is a mutation intent that has not been confirmed by the remote API.
// It is either pending (Failed=false, Attempts<MaxAttempts) or terminally failed.
type PendingOperation struct {
	ID          string          `json:"id"`
	Kind        OperationKind   `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	Failed      bool            `json:"failed"`
	LastError   string          `json:"lastError,omitempty"`
}
