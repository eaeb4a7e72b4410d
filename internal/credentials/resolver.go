package credentials

import (
	"context"
	"log/slog"
	"time"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/pkg/errors"
)

// Resolver looks up the credential of an organization with a single store read.
type Resolver struct {
	logger *slog.Logger
	store  Store
	now    func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger of the Resolver.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	_inst := &Resolver{store: store, now: time.Now}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "credentials")
	return _inst
}

// Resolve returns the credential stored for organizationID.
// Absent, empty or expired credentials yield a *NotFoundError; any other store failure is returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, organizationID string) (*Credential, error) {
	if organizationID == "" {
		return nil, &NotFoundError{Reason: "empty organization id"}
	}

	credential, err := r.store.Get(ctx, organizationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Info("no credential stored", slog.String("organizationId", organizationID))
			return nil, &NotFoundError{OrganizationID: organizationID}
		}
		return nil, errors.Wrapf(err, "failed to look up credential for organization %s", organizationID)
	}

	switch {
	case credential == nil || credential.AccessToken == "":
		return nil, &NotFoundError{OrganizationID: organizationID, Reason: "revoked"}
	case credential.Expired(r.now()):
		r.logger.Info("stored credential expired", slog.Any("credential", credential))
		return nil, &NotFoundError{OrganizationID: organizationID, Reason: "expired"}
	}

	r.logger.Debug("resolved credential", slog.Any("credential", credential))
	return credential, nil
}
