package surface

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Queue runs fire-and-forget tasks on their own goroutines. Task errors and
// panics are logged and never reach the caller of Go.
type Queue struct {
	g      errgroup.Group
	logger zerolog.Logger
}

// NewQueue creates an empty work queue.
func NewQueue(logger zerolog.Logger) *Queue {
	return &Queue{logger: logger}
}

// Go schedules fn and returns immediately.
func (q *Queue) Go(name string, fn func() error) {
	q.g.Go(func() error {
		if err := runTask(fn); err != nil {
			q.logger.Error().Err(err).Str("task", name).Msg("background task failed")
		}
		return nil
	})
}

func runTask(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Wait blocks until every scheduled task has finished.
func (q *Queue) Wait() {
	_ = q.g.Wait()
}
