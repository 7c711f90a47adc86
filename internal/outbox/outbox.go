package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"warehouse-sync-agent/internal/models"

	"github.com/google/uuid"
)

// DefaultMaxAttempts is the number of drain attempts before an operation fails terminally.
const DefaultMaxAttempts = 3

var (
	// ErrUnknownKind is a caller bug: no handler is registered for the kind. Nothing is queued.
	ErrUnknownKind     = errors.New("unknown operation kind")
	ErrDrainInProgress = errors.New("drain already in progress")
	ErrOffline         = errors.New("remote API is unreachable")
	ErrNotFound        = errors.New("operation not found")
	ErrNotFailed       = errors.New("operation has not failed")
)

// Handler performs one mutation against the remote API.
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Handlers maps each kind to its handler.
type Handlers map[models.OperationKind]Handler

// Connectivity is the read side of the connectivity monitor.
type Connectivity interface {
	Online() bool
}

// Ledger receives the user-visible notifications of queue activity.
type Ledger interface {
	Info(message string, detail any) models.NotificationEntry
	Warning(message string, detail any) models.NotificationEntry
	Error(message string, detail any) models.NotificationEntry
}

// Options controls construction of an Outbox.
type Options struct {
	Handlers     Handlers
	Connectivity Connectivity
	Ledger       Ledger
	Logger       *slog.Logger
	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int
	// AttemptTimeout bounds every handler call so one stalled request cannot block the drain.
	AttemptTimeout time.Duration
	// SyncInterval is the background drain period used by Run.
	SyncInterval time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Outbox queues mutations that could not be confirmed and replays them in creation order.
// The queue lives in memory only.
type Outbox struct {
	handlers       Handlers
	conn           Connectivity
	ledger         Ledger
	logger         *slog.Logger
	maxAttempts    int
	attemptTimeout time.Duration
	syncInterval   time.Duration
	now            func() time.Time
	newID          func() string

	mu       sync.Mutex
	ops      []models.PendingOperation
	lastSync time.Time

	syncing  atomic.Bool
	triggers chan struct{}
}

func New(opts Options) (*Outbox, error) {
	if len(opts.Handlers) == 0 {
		return nil, errors.New("outbox: at least one handler is required")
	}
	for kind, h := range opts.Handlers {
		if h == nil {
			return nil, fmt.Errorf("outbox: nil handler for %q", kind)
		}
	}
	if opts.Connectivity == nil {
		return nil, errors.New("outbox: connectivity is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("outbox: ledger is required")
	}
	o := &Outbox{
		handlers:       make(Handlers, len(opts.Handlers)),
		conn:           opts.Connectivity,
		ledger:         opts.Ledger,
		logger:         opts.Logger,
		maxAttempts:    opts.MaxAttempts,
		attemptTimeout: opts.AttemptTimeout,
		syncInterval:   opts.SyncInterval,
		now:            opts.Now,
		newID:          opts.NewID,
		triggers:       make(chan struct{}, 1),
	}
	for kind, h := range opts.Handlers {
		o.handlers[kind] = h
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.attemptTimeout <= 0 {
		o.attemptTimeout = 15 * time.Second
	}
	if o.syncInterval <= 0 {
		o.syncInterval = 2 * time.Minute
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// SubmitResult reports what happened to a submitted mutation.
type SubmitResult struct {
	// Accepted is false only when an immediate attempt failed.
	Accepted bool `json:"accepted"`
	// Deferred is set when the mutation was queued for a later drain.
	Deferred    bool            `json:"deferred"`
	OperationID string          `json:"operationId,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Err         error           `json:"-"`
}

// Submit is the entry point of every mutating call site. Offline, the mutation is queued;
// online, it is attempted once and queued if that fails. The optimistic update is applied
// exactly once in all of these cases. Only an unknown kind returns an error.
func (o *Outbox) Submit(ctx context.Context, kind models.OperationKind, payload json.RawMessage, optimistic func()) (SubmitResult, error) {
	handler, ok := o.handlers[kind]
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	payload = append(json.RawMessage(nil), payload...)

	if !o.conn.Online() {
		op := o.enqueue(kind, payload, "")
		apply(optimistic)
		o.ledger.Info(fmt.Sprintf("%s saved locally; it will sync when the connection is restored", kind), o.detail(op))
		o.logger.Info("operation queued while offline", "id", op.ID, "kind", kind)
		return SubmitResult{Accepted: true, Deferred: true, OperationID: op.ID}, nil
	}

	result, err := o.attempt(ctx, handler, payload)
	if err == nil {
		apply(optimistic)
		return SubmitResult{Accepted: true, Result: result}, nil
	}

	op := o.enqueue(kind, payload, err.Error())
	apply(optimistic)
	o.ledger.Warning(fmt.Sprintf("%s could not be sent and was queued for retry", kind), o.detail(op))
	o.logger.Warn("operation failed, queued", "id", op.ID, "kind", kind, "error", err)
	return SubmitResult{Deferred: true, OperationID: op.ID, Err: err}, nil
}

func apply(optimistic func()) {
	if optimistic != nil {
		optimistic()
	}
}

// DrainReport summarises one drain.
type DrainReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Requeued  int `json:"requeued"`
	Failed    int `json:"failed"`
}

// Drain attempts every pending operation once, in creation order.
// It returns ErrDrainInProgress if another drain is running and ErrOffline when offline;
// in both cases nothing is attempted.
func (o *Outbox) Drain(ctx context.Context) (DrainReport, error) {
	if !o.syncing.CompareAndSwap(false, true) {
		return DrainReport{}, ErrDrainInProgress
	}
	defer o.syncing.Store(false)

	if !o.conn.Online() {
		return DrainReport{}, ErrOffline
	}

	var report DrainReport
	for _, id := range o.pendingIDs() {
		// the entry may have been cleared or retried since the snapshot
		op, ok := o.lookup(id)
		if !ok || op.Failed {
			continue
		}
		handler, ok := o.handlers[op.Kind]
		if !ok {
			handler = func(context.Context, json.RawMessage) (json.RawMessage, error) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownKind, op.Kind)
			}
		}

		report.Attempted++
		_, err := o.attempt(ctx, handler, op.Payload)
		if ctx.Err() != nil {
			// shutting down; the interrupted attempt does not count against the operation
			report.Attempted--
			break
		}
		if err == nil {
			o.remove(id)
			report.Succeeded++
			o.ledger.Info(fmt.Sprintf("%s synced", op.Kind), o.detail(op))
			o.logger.Info("operation synced", "id", id, "kind", op.Kind)
			continue
		}

		updated, ok := o.recordFailure(id, err)
		if !ok {
			continue
		}
		if updated.Failed {
			report.Failed++
			o.ledger.Error(fmt.Sprintf("%s failed after %d attempts and will not be retried automatically", updated.Kind, updated.Attempts), o.detail(updated))
			o.logger.Error("operation failed terminally", "id", id, "kind", updated.Kind, "attempts", updated.Attempts, "error", err)
		} else {
			report.Requeued++
			o.ledger.Warning(fmt.Sprintf("%s sync failed (attempt %d of %d)", updated.Kind, updated.Attempts, updated.MaxAttempts), o.detail(updated))
			o.logger.Warn("operation sync failed", "id", id, "kind", updated.Kind, "attempts", updated.Attempts, "error", err)
		}
	}

	o.mu.Lock()
	o.lastSync = o.now()
	o.mu.Unlock()
	return report, nil
}

// ClearFailed removes every terminally failed operation and returns how many were removed.
func (o *Outbox) ClearFailed() int {
	o.mu.Lock()
	kept := o.ops[:0:0]
	for _, op := range o.ops {
		if !op.Failed {
			kept = append(kept, op)
		}
	}
	removed := len(o.ops) - len(kept)
	o.ops = kept
	o.mu.Unlock()

	if removed > 0 {
		o.ledger.Info(fmt.Sprintf("Cleared %d failed operations", removed), map[string]int{"removed": removed})
	}
	return removed
}

// Retry puts a terminally failed operation back in the queue with a fresh attempt budget.
// Its position in the creation order is unchanged.
func (o *Outbox) Retry(id string) error {
	o.mu.Lock()
	var op models.PendingOperation
	err := fmt.Errorf("%w: %s", ErrNotFound, id)
	for i := range o.ops {
		if o.ops[i].ID != id {
			continue
		}
		if !o.ops[i].Failed {
			err = fmt.Errorf("%w: %s", ErrNotFailed, id)
			break
		}
		o.ops[i].Failed = false
		o.ops[i].Attempts = 0
		op, err = o.ops[i], nil
		break
	}
	o.mu.Unlock()
	if err != nil {
		return err
	}

	o.ledger.Info(fmt.Sprintf("%s queued for retry", op.Kind), o.detail(op))
	return nil
}

// Operations returns a snapshot of the queue in creation order.
func (o *Outbox) Operations() []models.PendingOperation {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.PendingOperation, len(o.ops))
	copy(out, o.ops)
	return out
}

// Stats is the queue summary shown by the UI.
type Stats struct {
	Online       bool      `json:"online"`
	Syncing      bool      `json:"syncing"`
	PendingCount int       `json:"pendingCount"`
	FailedCount  int       `json:"failedCount"`
	TotalCount   int       `json:"totalCount"`
	LastSync     time.Time `json:"lastSync,omitempty"`
}

func (o *Outbox) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Stats{
		Online:     o.conn.Online(),
		Syncing:    o.syncing.Load(),
		TotalCount: len(o.ops),
		LastSync:   o.lastSync,
	}
	for _, op := range o.ops {
		if op.Failed {
			s.FailedCount++
		} else {
			s.PendingCount++
		}
	}
	return s
}

func (o *Outbox) attempt(ctx context.Context, handler Handler, payload json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()
	return handler(ctx, payload)
}

func (o *Outbox) enqueue(kind models.OperationKind, payload json.RawMessage, lastErr string) models.PendingOperation {
	op := models.PendingOperation{
		ID:          o.newID(),
		Kind:        kind,
		Payload:     payload,
		CreatedAt:   o.now(),
		MaxAttempts: o.maxAttempts,
		LastError:   lastErr,
	}
	o.mu.Lock()
	o.ops = append(o.ops, op)
	o.mu.Unlock()
	return op
}

func (o *Outbox) pendingIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.ops))
	for _, op := range o.ops {
		if !op.Failed {
			ids = append(ids, op.ID)
		}
	}
	return ids
}

func (o *Outbox) lookup(id string) (models.PendingOperation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, op := range o.ops {
		if op.ID == id {
			return op, true
		}
	}
	return models.PendingOperation{}, false
}

func (o *Outbox) remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, op := range o.ops {
		if op.ID == id {
			o.ops = append(o.ops[:i:i], o.ops[i+1:]...)
			return
		}
	}
}

// recordFailure re-reads the entry after the attempt and bumps its attempt count.
// It reports false if the entry disappeared while the attempt was in flight.
func (o *Outbox) recordFailure(id string, err error) (models.PendingOperation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ops {
		if o.ops[i].ID != id {
			continue
		}
		op := &o.ops[i]
		op.Attempts++
		op.LastError = err.Error()
		if op.Attempts >= op.MaxAttempts {
			op.Failed = true
		}
		return *op, true
	}
	return models.PendingOperation{}, false
}

func (o *Outbox) detail(op models.PendingOperation) models.OperationDetail {
	return models.OperationDetail{
		OperationID: op.ID,
		Kind:        op.Kind,
		Attempts:    op.Attempts,
		MaxAttempts: op.MaxAttempts,
		Error:       op.LastError,
	}
}
