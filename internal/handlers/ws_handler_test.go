package handlers_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warehouse-sync-agent/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func readMessage(t *testing.T, conn *websocket.Conn) realtime.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg realtime.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestWebSocket_PushesNotifications(t *testing.T) {
	env := newTestEnv(t, true)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + env.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, realtime.TypeSnapshot, readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return env.handler.Hub.Connected() == 1 }, time.Second, 10*time.Millisecond)

	env.handler.Ledger.Warning("Connection lost", nil)

	msg := readMessage(t, conn)
	require.Equal(t, realtime.TypeNotification, msg.Type)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Connection lost", data["message"])
	require.Equal(t, "warning", data["category"])
}

func TestWebSocket_RejectsMissingToken(t *testing.T) {
	env := newTestEnv(t, true)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 401, resp.StatusCode)
}
