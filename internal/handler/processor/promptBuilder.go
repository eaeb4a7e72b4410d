package processor

import (
	"context"
	"log/slog"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/prompt"
)

type promptBuilderProcessor struct {
	logger *slog.Logger
}

func NewPromptBuilderProcessor(opts ...Option) Processor {
	_inst := &promptBuilderProcessor{logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *promptBuilderProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("processor:prompt")
}

func (p *promptBuilderProcessor) Process(_ context.Context, bus *ingest.Bus) error {
	bus.Advance(ingest.BuildingPrompt)
	bus.Prompt = prompt.Build(bus.Event())
	if bus.Prompt == "" {
		p.logger.Info("event carries no issue title or comment")
	}
	return nil
}
