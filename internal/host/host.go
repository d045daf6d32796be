// Package host implements the lifecycle hooks of the host application:
// delayed autostart, hide-on-close and the logs folder shortcut.
package host

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sevir/runnerhost/internal/opener"
)

// MsgLogsOpened is returned by OpenLogs on success.
const MsgLogsOpened = "logs folder opened"

// Starter is the supervisor operation used by autostart.
type Starter interface {
	Start() (string, error)
}

// Config wires a Host.
type Config struct {
	Supervisor Starter
	Window     Window
	Opener     opener.Opener
	LogsDir    string
	Logger     zerolog.Logger
}

// Host owns the lifecycle hooks.
type Host struct {
	sup     Starter
	window  Window
	opener  opener.Opener
	logsDir string
	logger  zerolog.Logger
}

// New creates a Host.
func New(cfg Config) *Host {
	o := cfg.Opener
	if o == nil {
		o = opener.Platform()
	}
	return &Host{
		sup:     cfg.Supervisor,
		window:  cfg.Window,
		opener:  o,
		logsDir: cfg.LogsDir,
		logger:  cfg.Logger,
	}
}

// Window returns the host window.
func (h *Host) Window() Window {
	return h.window
}

// Startup starts the worker once after delay, on its own goroutine. The
// returned channel is closed when the attempt has finished or was skipped
// because ctx ended first.
func (h *Host) Startup(ctx context.Context, delay time.Duration) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			h.logger.Info().Msg("autostart cancelled before delay elapsed")
			return
		case <-timer.C:
		}

		if _, err := h.sup.Start(); err != nil {
			h.logger.Error().Err(err).Msg("failed to auto-start runner")
		}
	}()

	return done
}

// OnCloseRequested hides the window instead of closing it. The worker is
// left untouched.
func (h *Host) OnCloseRequested(ev *CloseEvent) {
	ev.PreventClose()
	if err := h.window.Hide(); err != nil {
		h.logger.Warn().Err(err).Msg("failed to hide window")
	}
}

// OpenLogs opens the host log directory in the platform file browser.
func (h *Host) OpenLogs() (string, error) {
	if err := opener.EnsureAndOpen(h.opener, h.logsDir); err != nil {
		h.logger.Error().Err(err).Str("logs_dir", h.logsDir).Msg("failed to open logs folder")
		return "", err
	}
	return MsgLogsOpened, nil
}

// LogsDir returns the directory opened by OpenLogs.
func (h *Host) LogsDir() string {
	return h.logsDir
}
