// Package processor provides the stages of the webhook ingestion pipeline and a runner chaining them.
package processor

import (
	"context"
	"log/slog"

	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/ingest"
)

// Option is a function that applies an option to a Processor.
type Option = func(Processor)

// Processor is a single pipeline stage.
// A processor that produces the final answer marks the bus Done; a processor that fails returns an error
// after setting the response.
type Processor interface {
	SetLogger(logger *slog.Logger)
	Process(ctx context.Context, bus *ingest.Bus) error
}

// CredentialResolver resolves the credential of an organization. It is implemented by *credentials.Resolver.
type CredentialResolver interface {
	Resolve(ctx context.Context, organizationID string) (*credentials.Credential, error)
}

// TaskDispatcher schedules a task without blocking. It is implemented by *dispatch.Dispatcher.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, task *dispatch.Task)
}

// WithLogger sets the logger of a Processor.
func WithLogger(logger *slog.Logger) Option {
	return func(p Processor) {
		p.SetLogger(logger)
	}
}

// Process runs bus through processors in order until one fails or marks the bus Done.
func Process(ctx context.Context, bus *ingest.Bus, processors ...Processor) (*ingest.Bus, error) {
	for _, p := range processors {
		if err := p.Process(ctx, bus); err != nil {
			return bus, err
		}
		if bus.Done {
			return bus, nil
		}
	}
	if !bus.Done {
		return bus, ingest.NewInternalError("pipeline finished without a response in state %s", bus.State)
	}
	return bus, nil
}

func applyOpts(m Processor, opts ...Option) {
	for _, opt := range opts {
		opt(m)
	}
}
