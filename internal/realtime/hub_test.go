package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"warehouse-sync-agent/internal/ledger"
	"warehouse-sync-agent/internal/models"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	received [][]byte
	closed   bool
	block    chan struct{}
}

func (c *fakeClient) Send(message []byte) bool {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, message)
	return true
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) Received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.received...)
}

func (c *fakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHub_PublishReachesEveryOperator(t *testing.T) {
	hub := NewHub(nil)
	a1, a2, b := &fakeClient{}, &fakeClient{}, &fakeClient{}
	hub.Register("alice", a1)
	hub.Register("alice", a2)
	hub.Register("bob", b)
	require.Equal(t, 3, hub.Connected())

	hub.Publish(TypeNotification, map[string]string{"message": "synced"})

	for _, c := range []*fakeClient{a1, a2, b} {
		require.Eventually(t, func() bool { return len(c.Received()) == 1 }, time.Second, 5*time.Millisecond)
		var msg Message
		require.NoError(t, json.Unmarshal(c.Received()[0], &msg))
		require.Equal(t, TypeNotification, msg.Type)
	}
}

func TestHub_GreetingPrecedesBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	c := &fakeClient{}
	hub.Register("alice", c, []byte("hello"))
	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))

	require.Eventually(t, func() bool { return len(c.Received()) == 3 }, time.Second, 5*time.Millisecond)
	got := c.Received()
	require.Equal(t, "hello", string(got[0]))
	require.Equal(t, "one", string(got[1]))
	require.Equal(t, "two", string(got[2]))
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(nil)
	c := &fakeClient{}
	hub.Register("alice", c)
	hub.Unregister("alice", c)
	require.Zero(t, hub.Connected())

	hub.Broadcast([]byte("x"))
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, c.Received())
}

func TestHub_StalledClientDoesNotBlockLedger(t *testing.T) {
	hub := NewHub(nil)
	events := ledger.New()
	events.Subscribe(func(e models.NotificationEntry) { hub.Publish(TypeNotification, e) })

	stalled := &fakeClient{block: make(chan struct{})}
	defer close(stalled.block)
	healthy := &fakeClient{}
	hub.Register("alice", stalled)
	hub.Register("bob", healthy)

	// two batches so the healthy client's queue never overflows
	batch := SendBuffer/2 + 8
	appendBatch := func() time.Duration {
		start := time.Now()
		for i := 0; i < batch; i++ {
			events.Info("saved locally", nil)
		}
		return time.Since(start)
	}

	require.Less(t, appendBatch(), 500*time.Millisecond)
	require.Eventually(t, func() bool { return len(healthy.Received()) == batch }, time.Second, 5*time.Millisecond)
	require.Less(t, appendBatch(), 500*time.Millisecond)

	require.Eventually(t, stalled.Closed, time.Second, 5*time.Millisecond, "a full queue disconnects the client")
	require.Eventually(t, func() bool { return len(healthy.Received()) == 2*batch }, time.Second, 5*time.Millisecond)
	require.False(t, healthy.Closed())
}
