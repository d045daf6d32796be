//go:build !linux && !freebsd && !openbsd && !netbsd && !dragonfly && !darwin && !windows

package opener

import (
	"fmt"
	"os/exec"
	"runtime"
)

type unsupported struct{}

func (unsupported) Open(path string) error {
	return fmt.Errorf("opening %s is not supported on %s", path, runtime.GOOS)
}

func platformOpener() Opener {
	return unsupported{}
}

func hideWindow(cmd *exec.Cmd) {}
