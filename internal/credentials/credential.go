// Package credentials resolves the per-organization Linear access tokens stored by the OAuth flow.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is the sentinel matched by every NotFoundError.
var ErrNotFound = errors.New("credential not found")

// Credential is an access token scoped to a single Linear organization.
type Credential struct {
	OrganizationID   string    `json:"organizationId"`
	OrganizationName string    `json:"organizationName,omitempty"`
	AccessToken      string    `json:"accessToken"`
	TokenType        string    `json:"tokenType,omitempty"`
	Scopes           []string  `json:"scopes,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt,omitzero"`
	CreatedAt        time.Time `json:"createdAt,omitzero"`
}

// Expired reports whether the credential has an expiry at or before now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// LogValue never includes the access token.
func (c *Credential) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("organizationId", c.OrganizationID),
		slog.Bool("hasToken", c.AccessToken != ""),
	}
	if !c.ExpiresAt.IsZero() {
		attrs = append(attrs, slog.Time("expiresAt", c.ExpiresAt))
	}
	return slog.GroupValue(attrs...)
}

// Store persists credentials keyed by organization id.
// Get returns an error matching ErrNotFound when no credential is stored.
type Store interface {
	Get(ctx context.Context, organizationID string) (*Credential, error)
	Put(ctx context.Context, credential *Credential) error
}

// NotFoundError reports an organization that has no usable credential and must re-authorize.
type NotFoundError struct {
	OrganizationID string
	Reason         string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no access token found for organization %s (%s)", e.OrganizationID, e.Reason)
	}
	return fmt.Sprintf("no access token found for organization %s", e.OrganizationID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
