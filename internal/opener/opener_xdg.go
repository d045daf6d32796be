//go:build linux || freebsd || openbsd || netbsd || dragonfly

package opener

import "os/exec"

func platformOpener() Opener {
	return commandOpener{name: "xdg-open"}
}

func hideWindow(cmd *exec.Cmd) {}
