// Package journal keeps a bounded in-memory record of supervisor transitions.
package journal

import (
	"sync"

	"github.com/sevir/runnerhost/pkg/models"
)

const defaultCapacity = 200

// ListFilter defines criteria for listing events.
type ListFilter struct {
	Kinds  []models.EventKind
	Limit  int
	Offset int
}

// Journal is a fixed-capacity ring of events. The oldest entry is dropped
// when the ring is full. Nothing is written to disk.
type Journal struct {
	mu       sync.RWMutex
	events   []models.Event
	next     int
	full     bool
	watchers map[chan models.Event]struct{}
}

// New creates a journal holding up to capacity events.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Journal{
		events:   make([]models.Event, capacity),
		watchers: make(map[chan models.Event]struct{}),
	}
}

// Publish records ev and forwards it to watchers. Slow watchers miss events
// rather than block the publisher.
func (j *Journal) Publish(ev models.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events[j.next] = ev
	j.next = (j.next + 1) % len(j.events)
	if j.next == 0 {
		j.full = true
	}

	for ch := range j.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Watch returns a channel receiving subsequent events and a function that
// unregisters it.
func (j *Journal) Watch(buffer int) (<-chan models.Event, func()) {
	ch := make(chan models.Event, buffer)

	j.mu.Lock()
	j.watchers[ch] = struct{}{}
	j.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			j.mu.Lock()
			delete(j.watchers, ch)
			j.mu.Unlock()
			close(ch)
		})
	}
}

// Len returns the number of stored events.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.full {
		return len(j.events)
	}
	return j.next
}

// List retrieves events matching the filter, newest first.
func (j *Journal) List(filter ListFilter) []models.Event {
	j.mu.RLock()
	n := j.next
	if j.full {
		n = len(j.events)
	}
	result := make([]models.Event, 0, n)
	for i := 1; i <= n; i++ {
		ev := j.events[(j.next-i+len(j.events))%len(j.events)]
		if matchesFilter(ev, filter) {
			result = append(result, ev)
		}
	}
	j.mu.RUnlock()

	// Apply offset and limit
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []models.Event{}
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result
}

func matchesFilter(ev models.Event, filter ListFilter) bool {
	if len(filter.Kinds) == 0 {
		return true
	}
	for _, k := range filter.Kinds {
		if ev.Kind == k {
			return true
		}
	}
	return false
}
