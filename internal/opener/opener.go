// Package opener hands a directory to the platform file browser.
package opener

import (
	"fmt"
	"os"
	"os/exec"
)

// Opener shows a path in the platform file browser.
type Opener interface {
	Open(path string) error
}

// commandOpener runs a file browser binary with the path as its only
// argument. It does not wait for the browser to exit.
type commandOpener struct {
	name string
	args []string
}

func (c commandOpener) Open(path string) error {
	args := append(append([]string{}, c.args...), path)
	cmd := exec.Command(c.name, args...)
	hideWindow(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s with %s: %w", path, c.name, err)
	}
	// Reap the browser launcher in the background.
	go cmd.Wait()
	return nil
}

// Platform returns the opener for the running OS.
func Platform() Opener {
	return platformOpener()
}

// EnsureAndOpen creates dir if needed and opens it.
func EnsureAndOpen(o Opener, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return o.Open(dir)
}

// Func adapts a function to Opener.
type Func func(path string) error

func (f Func) Open(path string) error { return f(path) }
