// Package oauth implements the Linear OAuth authorization code flow that makes organization credentials resolvable.
package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isometry/linear-agent-app/internal/controllers/linear"
	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/models"
	"golang.org/x/oauth2"
)

const (
	StateCookie = "linear_oauth_state"
	stateMaxAge = 10 * time.Minute
)

// OrganizationLookup returns the organization the token was granted for.
type OrganizationLookup func(ctx context.Context, client *http.Client) (*linear.Organization, error)

// Controller serves the authorize and callback endpoints.
type Controller struct {
	logger *slog.Logger
	config *oauth2.Config
	store  credentials.Store
	lookup OrganizationLookup
	apiURL string
	now    func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithAPIURL sets the Linear GraphQL endpoint used to look up the organization.
func WithAPIURL(url string) Option {
	return func(c *Controller) {
		c.apiURL = url
	}
}

// WithOrganizationLookup overrides how the organization of a new token is found.
func WithOrganizationLookup(lookup OrganizationLookup) Option {
	return func(c *Controller) {
		c.lookup = lookup
	}
}

// NewController creates a Controller storing granted credentials in store.
func NewController(config *oauth2.Config, store credentials.Store, opts ...Option) *Controller {
	_inst := &Controller{config: config, store: store, apiURL: linear.DefaultAPIURL, now: time.Now}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "oauth")
	if _inst.lookup == nil {
		_inst.lookup = func(ctx context.Context, client *http.Client) (*linear.Organization, error) {
			return linear.NewControllerWithClient(client, linear.WithAPIURL(_inst.apiURL), linear.WithLogger(_inst.logger)).Viewer(ctx)
		}
	}
	return _inst
}

// Authorize redirects to Linear's consent screen with a fresh state bound to a cookie.
func (c *Controller) Authorize(_ context.Context) models.Response {
	if c.config.ClientID == "" {
		c.logger.Error("OAuth client id is not configured")
		return models.Text(http.StatusInternalServerError, "OAuth client not configured")
	}
	state := uuid.NewString()
	location := c.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("actor", "app"),
		oauth2.SetAuthURLParam("prompt", "consent"))

	cookie := &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/oauth",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	c.logger.Debug("redirecting to authorize URL")
	return models.Response{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location":   location,
			"Set-Cookie": cookie.String(),
		},
	}
}

// Callback completes the flow: it checks the state, exchanges the code and stores the organization's credential.
func (c *Controller) Callback(ctx context.Context, query url.Values, cookieHeader string) models.Response {
	if providerErr := query.Get("error"); providerErr != "" {
		c.logger.Warn("authorization denied", slog.String("error", providerErr), slog.String("description", query.Get("error_description")))
		return models.Text(http.StatusBadRequest, "Authorization failed: "+providerErr)
	}

	state := query.Get("state")
	expected := stateFromCookies(cookieHeader)
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		c.logger.Warn("OAuth state mismatch")
		return models.Text(http.StatusBadRequest, "Invalid OAuth state")
	}

	code := query.Get("code")
	if code == "" {
		return models.Text(http.StatusBadRequest, "Missing authorization code")
	}

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		c.logger.Error("token exchange failed", slog.Any("error", err))
		return models.Text(http.StatusInternalServerError, "Token exchange failed")
	}

	org, err := c.lookup(ctx, c.config.Client(ctx, token))
	if err != nil {
		c.logger.Error("organization lookup failed", slog.Any("error", err))
		return models.Text(http.StatusInternalServerError, "Organization lookup failed")
	}

	credential := &credentials.Credential{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		AccessToken:      token.AccessToken,
		TokenType:        token.Type(),
		Scopes:           grantedScopes(token, c.config.Scopes),
		ExpiresAt:        token.Expiry,
		CreatedAt:        c.now().UTC(),
	}
	if err := c.store.Put(ctx, credential); err != nil {
		c.logger.Error("failed to store credential", slog.Any("credential", credential), slog.Any("error", err))
		return models.Text(http.StatusInternalServerError, "Failed to store credential")
	}

	c.logger.Info("organization authorized", slog.Any("credential", credential))
	response := models.Text(http.StatusOK, fmt.Sprintf("Authorization complete for organization %s", org.Name))
	response.Headers["Set-Cookie"] = (&http.Cookie{Name: StateCookie, Path: "/oauth", MaxAge: -1, HttpOnly: true, Secure: true}).String()
	return response
}

func stateFromCookies(header string) string {
	if header == "" {
		return ""
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, cookie := range cookies {
		if cookie.Name == StateCookie {
			return cookie.Value
		}
	}
	return ""
}

func grantedScopes(token *oauth2.Token, requested []string) []string {
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		return strings.FieldsFunc(scope, func(r rune) bool { return r == ',' || r == ' ' })
	}
	return requested
}
