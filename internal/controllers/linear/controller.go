// Package linear provides a Controller for the Linear GraphQL API.
package linear

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/pkg/errors"
	"github.com/shurcooL/graphql"
	"golang.org/x/oauth2"
)

// DefaultAPIURL is the GraphQL endpoint of the Linear API.
const DefaultAPIURL = "https://api.linear.app/graphql"

// ActivityType is the kind of an agent activity shown in a Linear agent session.
type ActivityType string

const (
	ActivityThought     ActivityType = "thought"
	ActivityAction      ActivityType = "action"
	ActivityResponse    ActivityType = "response"
	ActivityError       ActivityType = "error"
	ActivityElicitation ActivityType = "elicitation"
)

// ActivityContent is the JSON content of an agent activity.
type ActivityContent struct {
	Type ActivityType `json:"type"`
	Body string       `json:"body"`
}

// AgentActivityCreateInput is the input of the agentActivityCreate mutation.
type AgentActivityCreateInput struct {
	AgentSessionID string          `json:"agentSessionId"`
	Content        ActivityContent `json:"content"`
}

// Organization identifies the workspace an access token belongs to.
type Organization struct {
	ID     string
	Name   string
	URLKey string
}

// Controller talks to the Linear API on behalf of a single organization.
type Controller struct {
	logger *slog.Logger
	apiURL string
	client *graphql.Client
}

// Option defines a function type used to configure a Controller.
type Option func(*Controller)

// WithLogger sets the logger of the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithAPIURL overrides the GraphQL endpoint.
func WithAPIURL(url string) Option {
	return func(c *Controller) {
		c.apiURL = url
	}
}

// NewController creates a Controller authenticated with the OAuth access token.
func NewController(ctx context.Context, accessToken string, opts ...Option) *Controller {
	_inst := &Controller{apiURL: DefaultAPIURL}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "linear")

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	_inst.client = graphql.NewClient(_inst.apiURL, httpClient)
	return _inst
}

// NewControllerWithClient creates a Controller on top of an already authenticated HTTP client.
func NewControllerWithClient(httpClient *http.Client, opts ...Option) *Controller {
	_inst := &Controller{apiURL: DefaultAPIURL}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "linear")
	_inst.client = graphql.NewClient(_inst.apiURL, httpClient)
	return _inst
}

// Viewer returns the organization of the authenticated user.
func (c *Controller) Viewer(ctx context.Context) (*Organization, error) {
	var q struct {
		Viewer struct {
			ID           graphql.ID
			Organization struct {
				ID     graphql.ID
				Name   graphql.String
				URLKey graphql.String
			}
		}
	}
	if err := c.client.Query(ctx, &q, nil); err != nil {
		return nil, errors.Wrap(err, "failed to query viewer organization")
	}
	org := &Organization{
		ID:     toString(q.Viewer.Organization.ID),
		Name:   string(q.Viewer.Organization.Name),
		URLKey: string(q.Viewer.Organization.URLKey),
	}
	if org.ID == "" {
		return nil, errors.New("viewer has no organization")
	}
	c.logger.Debug("resolved viewer organization", slog.String("organizationId", org.ID))
	return org, nil
}

// CreateActivity posts an activity to the agent session and returns its id.
func (c *Controller) CreateActivity(ctx context.Context, sessionID string, content ActivityContent) (string, error) {
	var m struct {
		AgentActivityCreate struct {
			Success       graphql.Boolean
			AgentActivity struct {
				ID graphql.ID
			}
		} `graphql:"agentActivityCreate(input: $input)"`
	}
	input := AgentActivityCreateInput{AgentSessionID: sessionID, Content: content}
	if err := c.client.Mutate(ctx, &m, map[string]any{"input": input}); err != nil {
		return "", errors.Wrapf(err, "failed to create %s activity", content.Type)
	}
	if !m.AgentActivityCreate.Success {
		return "", errors.Errorf("%s activity was not created", content.Type)
	}
	id := toString(m.AgentActivityCreate.AgentActivity.ID)
	c.logger.Debug("created agent activity",
		slog.String("sessionId", sessionID),
		slog.String("type", string(content.Type)),
		slog.String("activityId", id))
	return id, nil
}

func toString(id graphql.ID) string {
	if s, ok := id.(string); ok {
		return s
	}
	return ""
}
