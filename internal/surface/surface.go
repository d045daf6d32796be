// Package surface maps tray menu actions onto supervisor operations.
package surface

import (
	"github.com/rs/zerolog"

	"github.com/sevir/runnerhost/pkg/models"
)

// Action identifies a tray menu entry.
type Action string

const (
	ActionOpen  Action = "open"
	ActionStart Action = "start"
	ActionStop  Action = "stop"
	ActionLogs  Action = "logs"
	ActionQuit  Action = "quit"
)

// Menu returns the tray menu in display order.
func Menu() []models.MenuItem {
	return []models.MenuItem{
		{ID: string(ActionOpen), Label: "Open Runner"},
		{Separator: true},
		{ID: string(ActionStart), Label: "Start Runner"},
		{ID: string(ActionStop), Label: "Stop Runner"},
		{Separator: true},
		{ID: string(ActionLogs), Label: "View Logs"},
		{Separator: true},
		{ID: string(ActionQuit), Label: "Quit"},
	}
}

// ParseAction validates a menu item id.
func ParseAction(id string) (Action, bool) {
	switch a := Action(id); a {
	case ActionOpen, ActionStart, ActionStop, ActionLogs, ActionQuit:
		return a, true
	}
	return "", false
}

// Supervisor is the subset of the runner supervisor driven by the menu.
type Supervisor interface {
	Start() (string, error)
	Stop() (string, error)
}

// Window is the host window as seen by the menu.
type Window interface {
	Show() error
	Focus() error
}

// Config wires a Dispatcher to its collaborators.
type Config struct {
	Supervisor Supervisor
	Window     Window
	OpenLogs   func() (string, error)
	// Exit terminates the host process with the given code.
	Exit   func(code int)
	Queue  *Queue
	Logger zerolog.Logger
}

// Dispatcher translates tray events into work. Supervisor calls always run
// on the queue so the event path returns at once.
type Dispatcher struct {
	sup      Supervisor
	window   Window
	openLogs func() (string, error)
	exit     func(code int)
	queue    *Queue
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	q := cfg.Queue
	if q == nil {
		q = NewQueue(cfg.Logger)
	}
	return &Dispatcher{
		sup:      cfg.Supervisor,
		window:   cfg.Window,
		openLogs: cfg.OpenLogs,
		exit:     cfg.Exit,
		queue:    q,
		logger:   cfg.Logger,
	}
}

// Queue returns the work queue used for dispatched actions.
func (d *Dispatcher) Queue() *Queue {
	return d.queue
}

// HandleLeftClick shows and focuses the window. It runs synchronously.
func (d *Dispatcher) HandleLeftClick() {
	d.showWindow()
}

// HandleMenuClick dispatches the action for id. It reports false for ids
// that are not part of the menu.
func (d *Dispatcher) HandleMenuClick(id string) bool {
	action, ok := ParseAction(id)
	if !ok {
		d.logger.Debug().Str("menu_id", id).Msg("ignoring unknown menu item")
		return false
	}

	d.logger.Debug().Str("action", string(action)).Msg("menu action")

	switch action {
	case ActionOpen:
		d.showWindow()
	case ActionStart:
		d.queue.Go("tray-start", func() error {
			_, err := d.sup.Start()
			return err
		})
	case ActionStop:
		d.queue.Go("tray-stop", func() error {
			_, err := d.sup.Stop()
			return err
		})
	case ActionLogs:
		d.queue.Go("tray-logs", func() error {
			_, err := d.openLogs()
			return err
		})
	case ActionQuit:
		d.queue.Go("tray-quit", func() error {
			d.Quit()
			return nil
		})
	}
	return true
}

// Quit stops the worker once, ignoring the result, and exits with code 0.
func (d *Dispatcher) Quit() {
	if _, err := d.sup.Stop(); err != nil {
		d.logger.Warn().Err(err).Msg("runner stop failed during quit")
	}
	d.logger.Info().Msg("exiting host")
	d.exit(0)
}

func (d *Dispatcher) showWindow() {
	if err := d.window.Show(); err != nil {
		d.logger.Warn().Err(err).Msg("failed to show window")
	}
	if err := d.window.Focus(); err != nil {
		d.logger.Warn().Err(err).Msg("failed to focus window")
	}
}
