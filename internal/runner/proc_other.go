//go:build !unix && !windows

package runner

import (
	"errors"
	"os"
	"os/exec"
)

func configureProcAttr(cmd *exec.Cmd) {}

func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
