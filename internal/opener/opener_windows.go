//go:build windows

package opener

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func platformOpener() Opener {
	return commandOpener{name: "explorer"}
}

// hideWindow keeps the launcher from flashing a console window.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
