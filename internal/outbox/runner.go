package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warehouse-sync-agent/internal/connectivity"
)

// Trigger asks the Run loop for a drain. It never blocks; requests made while one is
// already waiting are coalesced.
func (o *Outbox) Trigger() {
	select {
	case o.triggers <- struct{}{}:
	default:
	}
}

// HandleConnectivity is the connectivity listener. Coming back online reports the backlog and
// requests a drain; going offline warns that changes are now kept locally.
func (o *Outbox) HandleConnectivity(evt connectivity.Event) {
	switch evt {
	case connectivity.BecameOnline:
		pending := o.Stats().PendingCount
		msg := "Connection restored"
		if pending > 0 {
			msg = fmt.Sprintf("Connection restored; syncing %d pending operations", pending)
		}
		o.ledger.Info(msg, nil)
		o.logger.Info("connectivity restored", "pending", pending)
		o.Trigger()
	case connectivity.BecameOffline:
		o.ledger.Warning("Connection lost; changes will be saved locally and synced later", nil)
		o.logger.Warn("connectivity lost")
	}
}

// Run drains on every trigger and every sync interval until ctx is done.
// Periodic drains are skipped while offline or when nothing is pending.
func (o *Outbox) Run(ctx context.Context) {
	ticker := time.NewTicker(o.syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.triggers:
			o.drainLogged(ctx)
		case <-ticker.C:
			if o.conn.Online() && o.Stats().PendingCount > 0 {
				o.drainLogged(ctx)
			}
		}
	}
}

func (o *Outbox) drainLogged(ctx context.Context) {
	report, err := o.Drain(ctx)
	switch {
	case errors.Is(err, ErrDrainInProgress), errors.Is(err, ErrOffline):
		o.logger.Debug("drain skipped", "reason", err)
	case err != nil:
		o.logger.Error("drain failed", "error", err)
	case report.Attempted > 0:
		o.logger.Info("drain finished",
			"attempted", report.Attempted,
			"succeeded", report.Succeeded,
			"requeued", report.Requeued,
			"failed", report.Failed,
		)
	}
}
