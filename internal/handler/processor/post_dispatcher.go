package processor

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/models"
)

const BodyHandled = "Webhook handled"

type dispatcherPostProcessor struct {
	logger      *slog.Logger
	dispatcher  TaskDispatcher
	agentAPIKey string
}

// NewDispatcherPostProcessor schedules the agent task and answers with the handled response.
func NewDispatcherPostProcessor(dispatcher TaskDispatcher, agentAPIKey string, opts ...Option) Processor {
	_inst := &dispatcherPostProcessor{dispatcher: dispatcher, agentAPIKey: agentAPIKey, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *dispatcherPostProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("post-processor:dispatcher")
}

func (p *dispatcherPostProcessor) Process(ctx context.Context, bus *ingest.Bus) error {
	e := bus.Event()
	if e == nil || bus.Credential == nil {
		return ingest.NewInternalError("scheduling without an event and credential")
	}
	bus.Advance(ingest.Scheduling)

	bus.Task = dispatch.NewTask(e.SessionID, bus.Prompt, bus.Credential, p.agentAPIKey)
	p.dispatcher.Dispatch(ctx, bus.Task)
	p.logger.Info("agent task scheduled", slog.Any("task", bus.Task))

	bus.Advance(ingest.Responding)
	bus.Respond(models.Text(http.StatusOK, BodyHandled))
	return nil
}
