package activity

import (
	"sync"
	"time"
)

// Entry is one recorded change to a user's tasks.
type Entry struct {
	Kind    string    `json:"kind"`
	TaskID  string    `json:"task_id,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Log keeps the most recent entries of each user, up to capacity per user.
type Log struct {
	mu       sync.RWMutex
	capacity int
	rings    map[string]*ring
}

type ring struct {
	entries []Entry
	next    int
	full    bool
}

// NewLog creates a Log holding at most capacity entries per user.
func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{
		capacity: capacity,
		rings:    make(map[string]*ring),
	}
}

// Record appends e to userID's log, dropping the oldest entry when full.
func (l *Log) Record(userID string, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.rings[userID]
	if !ok {
		r = &ring{entries: make([]Entry, l.capacity)}
		l.rings[userID] = r
	}
	r.entries[r.next] = e
	r.next = (r.next + 1) % l.capacity
	if r.next == 0 {
		r.full = true
	}
}

// List returns up to limit entries of userID, newest first. A limit of zero
// or less returns everything kept.
func (l *Log) List(userID string, limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.rings[userID]
	if !ok {
		return []Entry{}
	}
	n := r.next
	if r.full {
		n = l.capacity
	}
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.entries[(r.next-i+l.capacity)%l.capacity])
	}
	return out
}

// Forget drops everything kept for userID.
func (l *Log) Forget(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rings, userID)
}

// Users returns how many users have entries.
func (l *Log) Users() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rings)
}
