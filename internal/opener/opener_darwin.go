//go:build darwin

package opener

import "os/exec"

func platformOpener() Opener {
	return commandOpener{name: "open"}
}

func hideWindow(cmd *exec.Cmd) {}
