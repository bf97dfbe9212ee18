// Package live notifies subscribers after committed writes to the record store.
package live

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Change describes a committed write touching one or more tables.
type Change struct {
	Tables []string  `json:"tables"`
	At     time.Time `json:"at"`
}

// Subscription receives changes for the tables it was registered for.
// C has a buffer of one; a slow reader sees a single merged pending change.
type Subscription struct {
	ID uuid.UUID
	C  <-chan Change

	c      chan Change
	tables map[string]bool
}

func (s *Subscription) wants(tables []string) []string {
	if len(s.tables) == 0 {
		return tables
	}
	var out []string
	for _, t := range tables {
		if s.tables[t] {
			out = append(out, t)
		}
	}
	return out
}

// Hub fans committed changes out to subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
	now  func() time.Time
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]*Subscription),
		now:  time.Now,
	}
}

// Subscribe registers interest in the given tables. No tables means all tables.
func (h *Hub) Subscribe(tables ...string) *Subscription {
	c := make(chan Change, 1)
	s := &Subscription{
		ID:     uuid.New(),
		C:      c,
		c:      c,
		tables: make(map[string]bool, len(tables)),
	}
	for _, t := range tables {
		s.tables[t] = true
	}

	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()
	return s
}

// Unsubscribe removes a subscription and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.c)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers a change to every subscriber interested in at least one
// of the tables. It never blocks.
func (h *Hub) Publish(tables ...string) {
	if len(tables) == 0 {
		return
	}
	at := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		matched := s.wants(tables)
		if len(matched) == 0 {
			continue
		}
		ch := Change{Tables: matched, At: at}
		select {
		case s.c <- ch:
			continue
		default:
		}
		// Buffer full: merge with the pending change.
		select {
		case old := <-s.c:
			ch.Tables = mergeTables(old.Tables, ch.Tables)
		default:
		}
		select {
		case s.c <- ch:
		default:
		}
	}
}

func mergeTables(a, b []string) []string {
	out := slices.Clone(a)
	for _, t := range b {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}
