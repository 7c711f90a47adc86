package handlers_test

import (
	"net/http"
	"testing"

	"warehouse-sync-agent/internal/connectivity"
	"warehouse-sync-agent/internal/ledger"
	"warehouse-sync-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationList struct {
	Data   []models.NotificationEntry `json:"data"`
	Counts ledger.Counts              `json:"counts"`
}

func TestNotifications_Lifecycle(t *testing.T) {
	env := newTestEnv(t, true)
	env.handler.Ledger.Info("first", nil)
	env.handler.Ledger.Error("second", nil)

	list := decode[notificationList](t, env.do(t, http.MethodGet, "/api/notifications", nil))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "second", list.Data[0].Message)
	assert.Equal(t, 2, list.Counts.Unread)

	w := env.do(t, http.MethodPost, "/api/notifications/"+list.Data[0].ID+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode[ledger.Counts](t, w)
	assert.Equal(t, 1, counts.Unread)
	assert.Equal(t, 0, counts.Error)

	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/notifications/nope/read", nil).Code)

	w = env.do(t, http.MethodDelete, "/api/notifications/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["removed"])

	w = env.do(t, http.MethodPost, "/api/notifications/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["updated"])

	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/notifications", nil).Code)
	assert.Empty(t, env.handler.Ledger.Entries())
}

func TestConnectivity_SetAndGet(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/connectivity", map[string]bool{"online": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["changed"])

	status := decode[connectivity.Status](t, env.do(t, http.MethodGet, "/api/connectivity", nil))
	assert.False(t, status.Online)

	// repeated signal is not a transition
	w = env.do(t, http.MethodPost, "/api/connectivity", map[string]bool{"online": false})
	assert.Equal(t, false, decode[map[string]any](t, w)["changed"])

	entries := env.handler.Ledger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.CategoryWarning, entries[0].Category)
}

func TestConnectivity_RequiresOnlineField(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPost, "/api/connectivity", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
