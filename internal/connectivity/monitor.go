package connectivity

import (
	"sync"
	"time"
)

// Event is a connectivity transition
type Event string

const (
	BecameOnline  Event = "becameOnline"
	BecameOffline Event = "becameOffline"
)

// Listener receives transition events in the order they happened.
// Listeners must not block and must not call Set.
type Listener func(Event)

// Monitor holds the process-wide reachability flag and relays transitions to listeners.
// Only Set changes the state.
type Monitor struct {
	mu        sync.RWMutex
	online    bool
	changedAt time.Time
	listeners []Listener
	now       func() time.Time

	// serializes transitions with their delivery
	deliverMu sync.Mutex
}

func NewMonitor(initialOnline bool) *Monitor {
	return &Monitor{
		online:    initialOnline,
		changedAt: time.Now(),
		now:       time.Now,
	}
}

// Online reports the current state
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Status is a snapshot for display
type Status struct {
	Online    bool      `json:"online"`
	ChangedAt time.Time `json:"changedAt"`
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{Online: m.online, ChangedAt: m.changedAt}
}

// Subscribe registers fn for every future transition
func (m *Monitor) Subscribe(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Set records a reachability signal. Listeners are called, outside the lock, only when the state flips.
// It reports whether a transition happened.
func (m *Monitor) Set(online bool) bool {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	m.changedAt = m.now()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	evt := BecameOffline
	if online {
		evt = BecameOnline
	}
	for _, fn := range listeners {
		fn(evt)
	}
	return true
}
