package runner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handle references a launched worker process.
type Handle interface {
	// ID is a unique identifier for this launch.
	ID() string
	Pid() int
	StartedAt() time.Time
	// Kill forcibly terminates the process. Killing a process that has
	// already exited is not an error.
	Kill() error
	// Wait blocks until the process has exited and its output is drained.
	Wait() error
}

// Launcher starts new worker processes.
type Launcher interface {
	Launch() (Handle, error)
}

// Command describes the worker invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Env     []string
	LogFile string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v (dir=%q)", c.Path, c.Args, c.Dir)
}

// ExecLauncher launches the worker with os/exec. Standard output and error
// are copied to LogFile; they are never interpreted.
type ExecLauncher struct {
	cmd    Command
	logger zerolog.Logger
}

// NewExecLauncher creates a launcher for cmd.
func NewExecLauncher(cmd Command, logger zerolog.Logger) *ExecLauncher {
	return &ExecLauncher{cmd: cmd, logger: logger}
}

// Launch starts a new worker process.
func (l *ExecLauncher) Launch() (Handle, error) {
	cmd := exec.Command(l.cmd.Path, l.cmd.Args...)
	cmd.Dir = l.cmd.Dir
	if len(l.cmd.Env) > 0 {
		cmd.Env = append(os.Environ(), l.cmd.Env...)
	}
	configureProcAttr(cmd)

	sink, err := openLogSink(l.cmd.LogFile)
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		sink.Close()
		return nil, err
	}

	h := &execHandle{
		id:        uuid.New().String(),
		cmd:       cmd,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	l.logger.Debug().
		Str("launch_id", h.id).
		Int("pid", h.Pid()).
		Str("log_file", l.cmd.LogFile).
		Msg("worker process spawned")

	go h.run(sink, stdout, stderr)

	return h, nil
}

func openLogSink(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{io.Discard}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open worker log: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type execHandle struct {
	id        string
	cmd       *exec.Cmd
	startedAt time.Time

	done    chan struct{}
	waitErr error
}

func (h *execHandle) ID() string           { return h.id }
func (h *execHandle) Pid() int             { return h.cmd.Process.Pid }
func (h *execHandle) StartedAt() time.Time { return h.startedAt }

func (h *execHandle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *execHandle) Kill() error {
	if h.exited() {
		return nil
	}
	return killProcess(h.cmd)
}

func (h *execHandle) Wait() error {
	<-h.done
	return h.waitErr
}

// run drains both pipes into sink and then reaps the process. exec requires
// the pipes to be fully read before Wait is called.
func (h *execHandle) run(sink io.WriteCloser, stdout, stderr io.ReadCloser) {
	defer close(h.done)
	defer sink.Close()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	wg.Add(2)

	capture := func(r io.Reader, prefix string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		for scanner.Scan() {
			mu.Lock()
			fmt.Fprintf(sink, "%s%s\n", prefix, scanner.Text())
			mu.Unlock()
		}
		// Keep draining if a line overflowed the scanner buffer.
		io.Copy(io.Discard, r)
	}

	go capture(stdout, "")
	go capture(stderr, "[stderr] ")

	wg.Wait()
	h.waitErr = h.cmd.Wait()
}
