// Package dispatch hands agent session tasks to the agent capability outside the request lifecycle.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Scheduler runs work after the response has been produced.
// Completion of scheduled work is never reported back to the caller of Go.
type Scheduler interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context))
}

// BackgroundScheduler runs each task in its own goroutine on a context detached from the caller's cancellation.
// Panics are recovered and logged. Wait blocks until every scheduled task has settled.
type BackgroundScheduler struct {
	logger    *slog.Logger
	wg        sync.WaitGroup
	inFlight  atomic.Int64
	sometimes *rate.Sometimes
}

// SchedulerOption configures a BackgroundScheduler.
type SchedulerOption func(*BackgroundScheduler)

// WithSchedulerLogger sets the logger of the BackgroundScheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *BackgroundScheduler) {
		s.logger = logger
	}
}

func NewBackgroundScheduler(opts ...SchedulerOption) *BackgroundScheduler {
	_inst := &BackgroundScheduler{sometimes: helpers.OnceAMinute()}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "scheduler")
	return _inst
}

func (s *BackgroundScheduler) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	inFlight := s.inFlight.Add(1)
	s.sometimes.Do(func() {
		s.logger.Info("background tasks in flight", slog.Int64("count", inFlight))
	})

	detached := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("background task panicked",
					slog.String("task", name),
					slog.Any("error", fmt.Errorf("%v", r)),
					slog.String("stack", string(debug.Stack())))
			}
		}()
		s.logger.Debug("background task started", slog.String("task", name))
		fn(detached)
		s.logger.Debug("background task settled", slog.String("task", name))
	}()
}

// InFlight returns the number of scheduled tasks that have not settled yet.
func (s *BackgroundScheduler) InFlight() int64 {
	return s.inFlight.Load()
}

// Wait blocks until all scheduled tasks have settled or ctx is done.
func (s *BackgroundScheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%d background tasks still running", s.InFlight())
	}
}
