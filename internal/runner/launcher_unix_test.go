//go:build unix

package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecLauncher_CapturesOutputAndStops(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "worker.log")

	l := NewExecLauncher(Command{
		Path:    "sh",
		Args:    []string{"-c", "echo ready; echo warn 1>&2; exec sleep 30"},
		Dir:     dir,
		LogFile: logFile,
	}, zerolog.Nop())
	sup := NewSupervisor(NewState(), l, zerolog.Nop())

	_, err := sup.Start()
	require.NoError(t, err)

	st := sup.Snapshot()
	require.True(t, st.Running)
	require.NotZero(t, st.PID)

	require.Eventually(t, func() bool {
		data, _ := os.ReadFile(logFile)
		return strings.Contains(string(data), "ready") && strings.Contains(string(data), "[stderr] warn")
	}, 5*time.Second, 20*time.Millisecond)

	msg, err := sup.Stop()
	require.NoError(t, err)
	assert.Equal(t, MsgStopped, msg)

	running, _ := sup.Status()
	assert.False(t, running)
}

func TestExecLauncher_MissingInterpreter(t *testing.T) {
	l := NewExecLauncher(Command{
		Path: "definitely-not-an-interpreter-7f3a",
		Args: []string{"main.py"},
		Dir:  t.TempDir(),
	}, zerolog.Nop())
	sup := NewSupervisor(NewState(), l, zerolog.Nop())

	_, err := sup.Start()
	require.ErrorIs(t, err, ErrLaunchFailed)

	running, _ := sup.Status()
	assert.False(t, running)
}

func TestExecLauncher_BadWorkDir(t *testing.T) {
	l := NewExecLauncher(Command{
		Path: "sh",
		Args: []string{"-c", "true"},
		Dir:  filepath.Join(t.TempDir(), "missing"),
	}, zerolog.Nop())

	_, err := l.Launch()
	require.Error(t, err)
}

func TestExecHandle_KillAfterExitIsNotAnError(t *testing.T) {
	l := NewExecLauncher(Command{Path: "sh", Args: []string{"-c", "exit 0"}}, zerolog.Nop())

	h, err := l.Launch()
	require.NoError(t, err)
	require.NoError(t, h.Wait())

	assert.NoError(t, h.Kill())
}
