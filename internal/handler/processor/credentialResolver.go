package processor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/models"
	"github.com/pkg/errors"
)

const BodyCredentialLookupFailed = "Credential lookup failed"

type credentialResolverProcessor struct {
	logger   *slog.Logger
	resolver CredentialResolver
}

// NewCredentialResolverProcessor resolves the access token of the event's organization.
func NewCredentialResolverProcessor(resolver CredentialResolver, opts ...Option) Processor {
	_inst := &credentialResolverProcessor{resolver: resolver, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *credentialResolverProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("processor:credentials")
}

func (p *credentialResolverProcessor) Process(ctx context.Context, bus *ingest.Bus) error {
	e := bus.Event()
	if e == nil {
		return ingest.NewInternalError("resolving credentials without an accepted event")
	}
	bus.Advance(ingest.ResolvingCredential)

	credential, err := p.resolver.Resolve(ctx, e.OrganizationID)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			p.logger.Warn("organization must re-authorize", slog.String("organizationId", e.OrganizationID), slog.Any("error", err))
			bus.Respond(models.Text(http.StatusInternalServerError,
				fmt.Sprintf("No access token found for organization %s; re-authorize the app", e.OrganizationID)))
			return err
		}
		p.logger.Error("credential lookup failed", slog.String("organizationId", e.OrganizationID), slog.Any("error", err))
		bus.Respond(models.Text(http.StatusInternalServerError, BodyCredentialLookupFailed))
		return err
	}

	bus.Credential = credential
	return nil
}
