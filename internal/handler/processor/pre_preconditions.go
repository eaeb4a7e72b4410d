package processor

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/models"
)

const (
	BodyWebhookSecretMissing = "Webhook secret not configured"
	BodyAgentAPIKeyMissing   = "Agent API key not configured"
)

type preconditionsProcessor struct {
	logger        *slog.Logger
	webhookSecret string
	agentAPIKey   string
}

// NewPreconditionsProcessor rejects every delivery while a required secret is missing, before the body is read.
func NewPreconditionsProcessor(webhookSecret, agentAPIKey string, opts ...Option) Processor {
	_inst := &preconditionsProcessor{webhookSecret: webhookSecret, agentAPIKey: agentAPIKey, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *preconditionsProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("pre-processor:preconditions")
}

func (p *preconditionsProcessor) Process(_ context.Context, bus *ingest.Bus) error {
	if p.webhookSecret == "" {
		p.logger.Error("webhook secret is not configured")
		bus.Respond(models.Text(http.StatusInternalServerError, BodyWebhookSecretMissing))
		return &ingest.ConfigurationError{Setting: "webhook secret"}
	}
	if p.agentAPIKey == "" {
		p.logger.Error("agent API key is not configured")
		bus.Respond(models.Text(http.StatusInternalServerError, BodyAgentAPIKeyMissing))
		return &ingest.ConfigurationError{Setting: "agent API key"}
	}
	return nil
}
