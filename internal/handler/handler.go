// Package handler provides the Linear webhook ingestion endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/handler/processor"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/models"
	"github.com/isometry/linear-agent-app/internal/validation"
	"github.com/pkg/errors"
)

// Secrets are the settings every delivery requires. Missing values fail each request with a 500.
type Secrets struct {
	WebhookSecret string
	AgentAPIKey   string
}

// Option configures a Handler.
type Option func(*Handler)

// Handler verifies, classifies and dispatches Linear webhook deliveries.
type Handler struct {
	logger     *slog.Logger
	secrets    Secrets
	resolver   processor.CredentialResolver
	dispatcher processor.TaskDispatcher
	tolerance  time.Duration

	scheduler     dispatch.Scheduler
	archiver      processor.Archiver
	archiveBucket string
	archivePrefix string

	processors []processor.Processor
}

// NewHandler creates a Handler resolving credentials with resolver and scheduling tasks on dispatcher.
func NewHandler(secrets Secrets, resolver processor.CredentialResolver, dispatcher processor.TaskDispatcher, opts ...Option) (*Handler, error) {
	if resolver == nil {
		return nil, errors.New("credential resolver is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	_inst := &Handler{
		secrets:    secrets,
		resolver:   resolver,
		dispatcher: dispatcher,
		tolerance:  validation.DefaultTolerance,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "handler")

	withLogger := processor.WithLogger(_inst.logger)
	_inst.processors = []processor.Processor{
		processor.NewPreconditionsProcessor(secrets.WebhookSecret, secrets.AgentAPIKey, withLogger),
		processor.NewSignatureValidatorProcessor(validation.NewWebhookSecret(secrets.WebhookSecret), _inst.tolerance, withLogger),
		processor.NewClassifierProcessor(withLogger),
		processor.NewCredentialResolverProcessor(resolver, withLogger),
		processor.NewPromptBuilderProcessor(withLogger),
	}
	if _inst.archiver != nil && _inst.archiveBucket != "" {
		if _inst.scheduler == nil {
			return nil, errors.New("archiving requires a scheduler")
		}
		_inst.processors = append(_inst.processors,
			processor.NewS3ArchiverPostProcessor(_inst.archiver, _inst.scheduler, _inst.archiveBucket, _inst.archivePrefix, withLogger))
	}
	_inst.processors = append(_inst.processors,
		processor.NewDispatcherPostProcessor(dispatcher, secrets.AgentAPIKey, withLogger))
	return _inst, nil
}

// Process runs one delivery through the pipeline. The returned bus always carries the response to send;
// a non-nil error explains a non-2xx response.
func (h *Handler) Process(ctx context.Context, body []byte, headers map[string]string) (*ingest.Bus, error) {
	bus, err := processor.Process(ctx, ingest.NewBus(body, headers), h.processors...)
	if err != nil {
		if !bus.Done {
			bus.Respond(models.Text(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
		}
		h.logger.Warn("webhook rejected", slog.Any("bus", bus), slog.Any("error", err))
		return bus, err
	}
	h.logger.Info("webhook processed", slog.Any("bus", bus))
	return bus, nil
}
