package host

import (
	"sync"

	"github.com/rs/zerolog"
)

// Window is the host's main window. Rendering lives outside this module.
type Window interface {
	Show() error
	Hide() error
	Focus() error
	Visible() bool
}

// CloseEvent is delivered when the window's close button is pressed.
type CloseEvent struct {
	prevented bool
}

// PreventClose cancels the default close action.
func (e *CloseEvent) PreventClose() {
	e.prevented = true
}

// Prevented reports whether the close was cancelled.
func (e *CloseEvent) Prevented() bool {
	return e.prevented
}

// HeadlessWindow tracks window visibility for hosts without a native
// window, such as the HTTP-driven shell.
type HeadlessWindow struct {
	mu      sync.Mutex
	visible bool
	focused bool
	logger  zerolog.Logger
}

// NewHeadlessWindow creates a visible headless window.
func NewHeadlessWindow(logger zerolog.Logger) *HeadlessWindow {
	return &HeadlessWindow{visible: true, logger: logger}
}

// Show makes the window visible. Focus is left unchanged.
func (w *HeadlessWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = true
	w.logger.Debug().Msg("window shown")
	return nil
}

// Hide makes the window invisible and drops its focus.
func (w *HeadlessWindow) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = false
	w.focused = false
	w.logger.Debug().Msg("window hidden")
	return nil
}

// Focus gives the window focus. A hidden window cannot take focus.
func (w *HeadlessWindow) Focus() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused = w.visible
	return nil
}

// Visible reports whether the window is shown.
func (w *HeadlessWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Focused reports whether the window holds focus.
func (w *HeadlessWindow) Focused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}
