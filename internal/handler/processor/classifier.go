package processor

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/isometry/linear-agent-app/internal/controllers/linear/event"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/models"
)

const BodyNonAgentEvent = "Webhook received (non-agent event)"

type classifierProcessor struct {
	logger *slog.Logger
}

// NewClassifierProcessor acknowledges every verified payload that is not an agent session event.
func NewClassifierProcessor(opts ...Option) Processor {
	_inst := &classifierProcessor{logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *classifierProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("processor:classifier")
}

func (p *classifierProcessor) Process(_ context.Context, bus *ingest.Bus) error {
	if bus.Payload == nil {
		return ingest.NewInternalError("classifying an unverified delivery")
	}
	bus.Advance(ingest.Classifying)
	bus.Classification = event.Classify(bus.Payload)

	if bus.Classification.Kind != event.Accepted {
		logger := p.logger.With(slog.String("type", string(bus.Payload.Type)), slog.String("action", bus.Payload.Action))
		if event.IsKnown(bus.Payload.Type) {
			logger.Debug("ignoring non-agent event")
		} else {
			logger.Info("ignoring unknown event type")
		}
		bus.Advance(ingest.Responding)
		bus.Respond(models.Text(http.StatusOK, BodyNonAgentEvent))
		return nil
	}

	p.logger.Info("accepted agent session event", slog.Any("event", bus.Event()))
	return nil
}
