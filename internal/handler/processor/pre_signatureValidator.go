package processor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/models"
	"github.com/isometry/linear-agent-app/internal/validation"
	"github.com/pkg/errors"
)

type signatureValidatorProcessor struct {
	logger    *slog.Logger
	secret    *validation.WebhookSecret
	tolerance time.Duration
}

// NewSignatureValidatorProcessor authenticates the raw body against the Linear-Signature header and parses it.
func NewSignatureValidatorProcessor(secret *validation.WebhookSecret, tolerance time.Duration, opts ...Option) Processor {
	_inst := &signatureValidatorProcessor{secret: secret, tolerance: tolerance, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *signatureValidatorProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("pre-processor:validator")
}

func (p *signatureValidatorProcessor) Process(_ context.Context, bus *ingest.Bus) error {
	bus.Advance(ingest.Verifying)
	signature := bus.Headers[strings.ToLower(validation.SignatureHeader)]

	payload, err := p.secret.Verify(bus.Body, signature, validation.WithTolerance(p.tolerance))
	if err != nil {
		var verr *validation.VerificationError
		if !errors.As(err, &verr) {
			bus.Respond(models.Text(http.StatusInternalServerError, "Webhook verification failed"))
			return ingest.NewInternalError("unexpected verification error: %v", err)
		}
		p.logger.Warn("webhook verification failed", slog.String("reason", string(verr.Reason)), slog.Any("error", err))
		bus.Respond(models.Text(http.StatusInternalServerError, "Webhook verification failed: "+string(verr.Reason)))
		return err
	}

	bus.Payload = payload
	p.logger.Debug("request body is valid", slog.String("type", string(payload.Type)))
	return nil
}
