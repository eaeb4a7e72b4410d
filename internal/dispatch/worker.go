package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/helpers"
)

// CredentialResolver resolves the credential of an organization. It is implemented by *credentials.Resolver.
type CredentialResolver interface {
	Resolve(ctx context.Context, organizationID string) (*credentials.Credential, error)
}

// Worker runs handed off Jobs in the invocation that received them.
// Every job is attempted once: failures are logged and never reported to the invoker, which would retry.
type Worker struct {
	logger     *slog.Logger
	resolver   CredentialResolver
	capability Capability
	apiKey     string
	timeout    time.Duration
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithWorkerTimeout bounds each agent run. Zero disables the bound.
func WithWorkerTimeout(timeout time.Duration) WorkerOption {
	return func(w *Worker) {
		w.timeout = timeout
	}
}

func NewWorker(resolver CredentialResolver, capability Capability, apiKey string, opts ...WorkerOption) *Worker {
	_inst := &Worker{resolver: resolver, capability: capability, apiKey: apiKey, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "worker")
	return _inst
}

// RunJob resolves the job's credential and runs the agent capability to completion.
func (w *Worker) RunJob(ctx context.Context, job *Job) {
	logger := w.logger.With(slog.Any("job", job))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("agent job panicked",
				slog.Any("error", fmt.Errorf("%v", r)),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	credential, err := w.resolver.Resolve(ctx, job.OrganizationID)
	if err != nil {
		logger.Error("agent job dropped: credential unavailable", slog.Any("error", err))
		return
	}
	task := NewTask(job.SessionID, job.Prompt, credential, w.apiKey)
	if job.ID != "" {
		task.ID = job.ID
	}
	runTask(ctx, w.capability, w.timeout, task, logger)
}
