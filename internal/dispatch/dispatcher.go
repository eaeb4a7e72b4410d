package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/isometry/linear-agent-app/internal/helpers"
)

// DefaultTimeout bounds a single agent run.
const DefaultTimeout = 5 * time.Minute

// Capability performs the agent work of a Task.
type Capability interface {
	Run(ctx context.Context, task *Task) error
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, task *Task) error

func (f CapabilityFunc) Run(ctx context.Context, task *Task) error {
	return f(ctx, task)
}

// Dispatcher schedules tasks on a Scheduler and contains their failures.
// Each task is attempted exactly once; failures are logged and never retried.
type Dispatcher struct {
	logger     *slog.Logger
	scheduler  Scheduler
	capability Capability
	timeout    time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger of the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTimeout bounds each agent run. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func NewDispatcher(scheduler Scheduler, capability Capability, opts ...Option) *Dispatcher {
	_inst := &Dispatcher{scheduler: scheduler, capability: capability, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "dispatcher")
	return _inst
}

// Dispatch schedules task and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, task *Task) {
	logger := d.logger.With(slog.Any("task", task))
	d.scheduler.Go(ctx, "dispatch:"+task.ID, func(ctx context.Context) {
		runTask(ctx, d.capability, d.timeout, task, logger)
	})
	logger.Debug("agent task scheduled")
}

// runTask runs task once under timeout and logs the outcome.
func runTask(ctx context.Context, capability Capability, timeout time.Duration, task *Task, logger *slog.Logger) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	if err := capability.Run(ctx, task); err != nil {
		logger.Error("agent task failed", slog.Any("error", err), slog.Duration("elapsed", time.Since(start)))
		return
	}
	logger.Info("agent task completed", slog.Duration("elapsed", time.Since(start)))
}
