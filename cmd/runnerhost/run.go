package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// stopper is the supervisor operation used on shutdown.
type stopper interface {
	Stop() (string, error)
}

// controlServer is the control API as seen by the run group.
type controlServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// runGroup serves srv until ctx ends, the server returns on its own, or an
// exit code arrives on exitCh. The first two stop the worker once; an exit
// request comes from the quit action, which has already stopped it. The
// returned code is the one received on exitCh, or 0.
func runGroup(ctx context.Context, sup stopper, srv controlServer, exitCh <-chan int, autostart func(context.Context), logger zerolog.Logger) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// In stdio mode Start returns once stdin is closed, which ends the host.
		defer cancel()
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	exitCode := 0
	g.Go(func() error {
		select {
		case <-gctx.Done():
			logger.Info().Msg("shutting down")
			if _, err := sup.Stop(); err != nil {
				logger.Warn().Err(err).Msg("runner stop failed during shutdown")
			}
		case exitCode = <-exitCh:
			logger.Info().Int("code", exitCode).Msg("exit requested")
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		cancel()
		return nil
	})

	if autostart != nil {
		autostart(gctx)
	}

	err := g.Wait()
	return exitCode, err
}
