// Package diagnostics reads resource usage of the supervised worker.
package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/sevir/runnerhost/pkg/models"
)

const defaultTimeout = 2 * time.Second

// ProcessInspector collects best-effort resource readings for a pid. It
// never signals or otherwise touches the process.
type ProcessInspector struct {
	timeout time.Duration
}

// NewProcessInspector creates an inspector.
func NewProcessInspector() *ProcessInspector {
	return &ProcessInspector{timeout: defaultTimeout}
}

// Inspect returns the current resource usage of pid.
func (p *ProcessInspector) Inspect(ctx context.Context, pid int) (*models.Resources, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid: %d", pid)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	res := &models.Resources{}

	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
		res.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		res.CPUPercent = cpu
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		res.Threads = threads
	}

	return res, nil
}
