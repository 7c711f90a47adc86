package ledger

import (
	"sync"
	"time"

	"warehouse-sync-agent/internal/models"

	"github.com/google/uuid"
)

// MaxEntries is the number of most recent notifications the ledger retains.
const MaxEntries = 100

// Sink receives every appended entry in append order, after the ledger lock is released.
// A sink must not append to the ledger it is subscribed to.
type Sink func(models.NotificationEntry)

// Ledger is an append-only, capped log of user-visible notifications, newest first.
// Apart from the read flag, entries are never modified.
type Ledger struct {
	mu      sync.RWMutex
	entries []models.NotificationEntry
	sinks   []Sink
	now     func() time.Time

	// held across the insert and the sink calls so sinks see entries in log order
	deliverMu sync.Mutex
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// Subscribe registers a sink for future appends
func (l *Ledger) Subscribe(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// Append pushes a new entry to the front of the log and truncates it to MaxEntries.
func (l *Ledger) Append(category models.Category, message string, detail any) models.NotificationEntry {
	entry := models.NotificationEntry{
		ID:        uuid.NewString(),
		Category:  category,
		Message:   message,
		Timestamp: l.now(),
		Detail:    detail,
	}

	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	next := make([]models.NotificationEntry, 0, min(len(l.entries)+1, MaxEntries))
	next = append(next, entry)
	next = append(next, l.entries...)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	l.entries = next
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.Unlock()

	for _, sink := range sinks {
		sink(entry)
	}
	return entry
}

func (l *Ledger) Info(message string, detail any) models.NotificationEntry {
	return l.Append(models.CategoryInfo, message, detail)
}

func (l *Ledger) Warning(message string, detail any) models.NotificationEntry {
	return l.Append(models.CategoryWarning, message, detail)
}

func (l *Ledger) Error(message string, detail any) models.NotificationEntry {
	return l.Append(models.CategoryError, message, detail)
}

// Entries returns a snapshot, newest first
func (l *Ledger) Entries() []models.NotificationEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.NotificationEntry(nil), l.entries...)
}

// MarkRead flags one entry as read. It reports whether the id was found.
func (l *Ledger) MarkRead(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead flags every entry as read and returns how many changed
func (l *Ledger) MarkAllRead() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for i := range l.entries {
		if !l.entries[i].Read {
			l.entries[i].Read = true
			n++
		}
	}
	return n
}

// ClearRead drops every read entry and returns how many were removed
func (l *Ledger) ClearRead() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0:0]
	for _, e := range l.entries {
		if !e.Read {
			kept = append(kept, e)
		}
	}
	removed := len(l.entries) - len(kept)
	l.entries = kept
	return removed
}

func (l *Ledger) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Counts backs the UI badges. Category counts only include unread entries.
type Counts struct {
	Total   int `json:"total"`
	Unread  int `json:"unread"`
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

func (l *Ledger) Counts() Counts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := Counts{Total: len(l.entries)}
	for _, e := range l.entries {
		if e.Read {
			continue
		}
		c.Unread++
		switch e.Category {
		case models.CategoryInfo:
			c.Info++
		case models.CategoryWarning:
			c.Warning++
		case models.CategoryError:
			c.Error++
		}
	}
	return c
}
