package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/sevir/runnerhost/pkg/models"
)

func event(n int, kind models.EventKind, base time.Time) models.Event {
	return models.Event{
		ID:   fmt.Sprintf("ev-%d", n),
		Kind: kind,
		At:   base.Add(time.Duration(n) * time.Second),
	}
}

func TestJournal(t *testing.T) {
	base := time.Now()
	j := New(4)

	t.Run("Empty", func(t *testing.T) {
		if got := j.List(ListFilter{}); len(got) != 0 {
			t.Fatalf("Expected empty journal, got %d events", len(got))
		}
	})

	j.Publish(event(1, models.EventStarted, base))
	j.Publish(event(2, models.EventStopped, base))
	j.Publish(event(3, models.EventStarted, base))

	t.Run("Newest first", func(t *testing.T) {
		got := j.List(ListFilter{})
		if len(got) != 3 {
			t.Fatalf("Expected 3 events, got %d", len(got))
		}
		if got[0].ID != "ev-3" || got[2].ID != "ev-1" {
			t.Errorf("Unexpected order: %s .. %s", got[0].ID, got[2].ID)
		}
	})

	t.Run("Filter by kind", func(t *testing.T) {
		got := j.List(ListFilter{Kinds: []models.EventKind{models.EventStopped}})
		if len(got) != 1 || got[0].ID != "ev-2" {
			t.Fatalf("Expected only ev-2, got %+v", got)
		}
	})

	t.Run("Offset and limit", func(t *testing.T) {
		got := j.List(ListFilter{Offset: 1, Limit: 1})
		if len(got) != 1 || got[0].ID != "ev-2" {
			t.Fatalf("Expected ev-2, got %+v", got)
		}
		if got := j.List(ListFilter{Offset: 10}); len(got) != 0 {
			t.Fatalf("Expected no events past the end, got %d", len(got))
		}
	})

	t.Run("Ring drops oldest", func(t *testing.T) {
		j.Publish(event(4, models.EventStopped, base))
		j.Publish(event(5, models.EventStarted, base))

		if j.Len() != 4 {
			t.Fatalf("Expected 4 events, got %d", j.Len())
		}
		got := j.List(ListFilter{})
		if got[0].ID != "ev-5" || got[len(got)-1].ID != "ev-2" {
			t.Errorf("Expected ev-5..ev-2, got %s..%s", got[0].ID, got[len(got)-1].ID)
		}
	})
}

func TestJournalWatch(t *testing.T) {
	j := New(8)
	ch, cancel := j.Watch(1)

	j.Publish(models.Event{ID: "a", Kind: models.EventStarted, At: time.Now()})
	// Buffer is full; this one is dropped for the watcher but still stored.
	j.Publish(models.Event{ID: "b", Kind: models.EventStopped, At: time.Now()})

	select {
	case ev := <-ch:
		if ev.ID != "a" {
			t.Fatalf("Expected event a, got %s", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected an event")
	}

	if j.Len() != 2 {
		t.Fatalf("Expected 2 stored events, got %d", j.Len())
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("Expected channel closed after cancel")
	}
}
