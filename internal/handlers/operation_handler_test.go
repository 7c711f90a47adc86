package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"warehouse-sync-agent/internal/handlers"
	"warehouse-sync-agent/internal/ledger"
	"warehouse-sync-agent/internal/outbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitOperation_Online(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/operations/stock-adjustment", `{"sku":"A-1","delta":-2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[handlers.OperationResponse](t, w)
	assert.True(t, resp.Accepted)
	assert.False(t, resp.Deferred)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result))
	assert.Equal(t, []string{`/inventory/adjustments {"sku":"A-1","delta":-2}`}, env.warehouse.Writes())
}

func TestSubmitOperation_OfflineIsDeferred(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/operations/internal-transfer", `{"from":"A","to":"B"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode[handlers.OperationResponse](t, w)
	assert.True(t, resp.Accepted)
	assert.True(t, resp.Deferred)
	assert.NotEmpty(t, resp.OperationID)
	assert.Empty(t, env.warehouse.Writes())

	stats := decode[outbox.Stats](t, env.do(t, http.MethodGet, "/api/sync/stats", nil))
	assert.Equal(t, 1, stats.PendingCount)
	assert.False(t, stats.Online)
}

func TestSubmitOperation_RemoteFailureIsQueued(t *testing.T) {
	env := newTestEnv(t, true)
	env.warehouse.set(func(f *fakeWarehouse) { f.failWrites = true })

	w := env.do(t, http.MethodPost, "/api/operations/quick-addition", `{"sku":"B-7"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode[handlers.OperationResponse](t, w)
	assert.False(t, resp.Accepted)
	assert.True(t, resp.Deferred)
	assert.Contains(t, resp.Error, "503")

	counts := decode[ledger.Counts](t, env.do(t, http.MethodGet, "/api/notifications/counts", nil))
	assert.Equal(t, 1, counts.Warning)
}

func TestSubmitOperation_UnknownKind(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPost, "/api/operations/teleport", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.handler.Outbox.Operations())
}

func TestSubmitOperation_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPost, "/api/operations/item-correction", `{"sku":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.warehouse.Writes())
}

type stalledTerminal struct{ release chan struct{} }

func (s *stalledTerminal) Send([]byte) bool { <-s.release; return false }
func (s *stalledTerminal) Close()           {}

func TestSubmitOperation_StalledTerminalDoesNotDelayResponse(t *testing.T) {
	env := newTestEnv(t, false)
	terminal := &stalledTerminal{release: make(chan struct{})}
	defer close(terminal.release)
	env.handler.Hub.Register("carol", terminal)

	for i := 0; i < 3; i++ {
		start := time.Now()
		w := env.do(t, http.MethodPost, "/api/operations/stock-adjustment", `{"sku":"A-1"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Less(t, time.Since(start), time.Second)
	}
	assert.Equal(t, 3, env.handler.Outbox.Stats().PendingCount)
}
