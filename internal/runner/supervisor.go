package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sevir/runnerhost/pkg/models"
)

const (
	// MsgStarted is returned by a successful Start.
	MsgStarted = "runner started"
	// MsgStopped is returned when Stop terminated a worker.
	MsgStopped = "runner stopped"
	// MsgNothingToStop is returned when Stop found no worker to terminate.
	MsgNothingToStop = "no runner process to stop"
)

var (
	// ErrLaunchFailed is returned by Start when the OS refuses to spawn the worker.
	ErrLaunchFailed = errors.New("failed to start runner")
	// ErrTerminateFailed is returned by Stop when the kill call itself fails.
	ErrTerminateFailed = errors.New("failed to stop runner")
)

// EventSink receives supervisor transitions. Publish is called while the
// state lock is held, so events arrive in transition order; it must not block
// or call back into the Supervisor.
type EventSink interface {
	Publish(ev models.Event)
}

// Supervisor owns start/stop/status of the worker. All operations serialize
// on the State they were built with.
type Supervisor struct {
	state    *State
	launcher Launcher
	logger   zerolog.Logger
	sinks    []EventSink
	now      func() time.Time
}

// NewSupervisor creates a supervisor over state.
func NewSupervisor(state *State, launcher Launcher, logger zerolog.Logger, sinks ...EventSink) *Supervisor {
	return &Supervisor{
		state:    state,
		launcher: launcher,
		logger:   logger,
		sinks:    sinks,
		now:      time.Now,
	}
}

// Start launches the worker. A worker that is already running is killed and
// replaced; Start never degrades to a no-op.
func (s *Supervisor) Start() (string, error) {
	s.logger.Info().Msg("starting runner")

	err := s.state.Acquire(func(g *Guard) error {
		var events []models.Event
		// Events go out before the lock is released so sinks see transitions
		// in the order they happened.
		defer func() { s.publish(events) }()

		if prev := g.Take(); prev != nil {
			g.SetRunning(false)
			msg := "previous runner terminated"
			killErr := prev.Kill()
			if killErr != nil {
				msg = "failed to kill previous runner"
				s.logger.Warn().Err(killErr).Int("pid", prev.Pid()).Str("launch_id", prev.ID()).
					Msg("failed to kill previous runner, continuing")
			}
			prev.Wait()
			events = append(events, s.event(models.EventKilledPrevious, msg, killErr, prev))
		}

		h, err := s.launcher.Launch()
		if err != nil {
			g.SetRunning(false)
			err = fmt.Errorf("%w: %w", ErrLaunchFailed, err)
			events = append(events, s.event(models.EventStartFailed, "", err, nil))
			return err
		}

		g.Set(h)
		g.SetRunning(true)
		events = append(events, s.event(models.EventStarted, MsgStarted, nil, h))
		return nil
	})

	if err != nil {
		s.logger.Error().Err(err).Msg("runner start failed")
		return "", err
	}
	s.logger.Info().Msg("runner started successfully")
	return MsgStarted, nil
}

// Stop terminates the worker. Stopping when nothing runs is a success. A
// failed kill leaves the handle and flag in place so Stop can be retried.
func (s *Supervisor) Stop() (string, error) {
	s.logger.Info().Msg("stopping runner")

	var (
		ev  models.Event
		msg string
	)

	err := s.state.Acquire(func(g *Guard) error {
		defer func() { s.publish([]models.Event{ev}) }()

		h := g.Handle()
		if h == nil {
			msg = MsgNothingToStop
			ev = s.event(models.EventStopNoop, msg, nil, nil)
			return nil
		}

		if err := h.Kill(); err != nil {
			err = fmt.Errorf("%w: %w", ErrTerminateFailed, err)
			ev = s.event(models.EventStopFailed, "", err, h)
			return err
		}
		h.Wait()

		g.Take()
		g.SetRunning(false)
		msg = MsgStopped
		ev = s.event(models.EventStopped, msg, nil, h)
		return nil
	})

	switch {
	case err != nil:
		s.logger.Error().Err(err).Msg("runner stop failed")
		return "", err
	case ev.Kind == models.EventStopNoop:
		s.logger.Warn().Msg(msg)
	default:
		s.logger.Info().Msg("runner stopped successfully")
	}
	return msg, nil
}

// Status reports the running flag. It waits for any in-flight Start or Stop.
func (s *Supervisor) Status() (bool, error) {
	var running bool
	err := s.state.Acquire(func(g *Guard) error {
		running = g.Running()
		return nil
	})
	return running, err
}

// Snapshot returns the current status together with the identity of the
// stored handle.
func (s *Supervisor) Snapshot() models.RunnerStatus {
	var st models.RunnerStatus
	// The callback cannot fail.
	_ = s.state.Acquire(func(g *Guard) error {
		st.Running = g.Running()
		if h := g.Handle(); h != nil {
			started := h.StartedAt()
			st.PID = h.Pid()
			st.LaunchID = h.ID()
			st.StartedAt = &started
		}
		return nil
	})
	return st.WithUptime(s.now())
}

func (s *Supervisor) event(kind models.EventKind, msg string, err error, h Handle) models.Event {
	ev := models.Event{
		ID:      uuid.New().String(),
		Kind:    kind,
		Message: msg,
		At:      s.now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if h != nil {
		ev.PID = h.Pid()
		ev.LaunchID = h.ID()
	}
	return ev
}

func (s *Supervisor) publish(events []models.Event) {
	for _, ev := range events {
		s.logger.Debug().
			Str("runner_event", string(ev.Kind)).
			Int("pid", ev.PID).
			Str("launch_id", ev.LaunchID).
			Str("error", ev.Error).
			Msg("runner transition")
		for _, sink := range s.sinks {
			sink.Publish(ev)
		}
	}
}
