package runner

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sevir/runnerhost/pkg/models"
)

type fakeHandle struct {
	id      string
	pid     int
	started time.Time

	mu      sync.Mutex
	kills   int
	waits   int
	killErr error
}

func (h *fakeHandle) ID() string           { return h.id }
func (h *fakeHandle) Pid() int             { return h.pid }
func (h *fakeHandle) StartedAt() time.Time { return h.started }

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kills++
	return h.killErr
}

func (h *fakeHandle) Wait() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.waits++
	return nil
}

func (h *fakeHandle) setKillErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killErr = err
}

func (h *fakeHandle) killCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kills
}

// fakeLauncher hands out fakeHandles and tracks how many are alive, i.e.
// launched and not yet killed.
type fakeLauncher struct {
	mu        sync.Mutex
	handles   []*fakeHandle
	launchErr error
	delay     time.Duration

	alive    atomic.Int32
	maxAlive atomic.Int32
}

func (l *fakeLauncher) Launch() (Handle, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	n := len(l.handles) + 1
	h := &fakeHandle{id: fmt.Sprintf("launch-%d", n), pid: 1000 + n, started: time.Now()}
	l.handles = append(l.handles, h)

	alive := l.alive.Add(1)
	for {
		cur := l.maxAlive.Load()
		if alive <= cur || l.maxAlive.CompareAndSwap(cur, alive) {
			break
		}
	}
	return &trackedHandle{fakeHandle: h, launcher: l}, nil
}

func (l *fakeLauncher) setLaunchErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launchErr = err
}

func (l *fakeLauncher) launched() []*fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*fakeHandle, len(l.handles))
	copy(out, l.handles)
	return out
}

type trackedHandle struct {
	*fakeHandle
	launcher *fakeLauncher
	dead     atomic.Bool
}

func (h *trackedHandle) Kill() error {
	if err := h.fakeHandle.Kill(); err != nil {
		return err
	}
	if h.dead.CompareAndSwap(false, true) {
		h.launcher.alive.Add(-1)
	}
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingSink) Publish(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) kinds() []models.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

var errKillDenied = errors.New("operation not permitted")
