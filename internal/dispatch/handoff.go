package dispatch

import (
	"context"
	"log/slog"

	"github.com/isometry/linear-agent-app/internal/helpers"
)

// Invoker starts an asynchronous invocation of a function. It is implemented by *aws.Controller.
type Invoker interface {
	InvokeAsync(ctx context.Context, functionName string, payload []byte) error
}

// HandoffDispatcher hands each task to a separate asynchronous invocation of functionName, where a Worker
// runs it. Dispatch returns once the invocation is queued, so the response never waits for the agent.
type HandoffDispatcher struct {
	logger       *slog.Logger
	invoker      Invoker
	functionName string
}

// HandoffOption configures a HandoffDispatcher.
type HandoffOption func(*HandoffDispatcher)

func WithHandoffLogger(logger *slog.Logger) HandoffOption {
	return func(d *HandoffDispatcher) {
		d.logger = logger
	}
}

func NewHandoffDispatcher(invoker Invoker, functionName string, opts ...HandoffOption) *HandoffDispatcher {
	_inst := &HandoffDispatcher{invoker: invoker, functionName: functionName}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "handoff-dispatcher")
	return _inst
}

// Dispatch queues task for a worker invocation. Failures are logged and never surfaced.
func (d *HandoffDispatcher) Dispatch(ctx context.Context, task *Task) {
	job := NewJob(task)
	logger := d.logger.With(slog.Any("job", job), slog.String("function", d.functionName))

	payload, err := EncodeJob(job)
	if err != nil {
		logger.Error("failed to encode agent job", slog.Any("error", err))
		return
	}
	if err := d.invoker.InvokeAsync(ctx, d.functionName, payload); err != nil {
		logger.Error("failed to hand off agent job", slog.Any("error", err))
		return
	}
	logger.Info("agent job handed off")
}
