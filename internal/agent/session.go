package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/isometry/linear-agent-app/internal/controllers/linear"
	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/pkg/errors"
)

const (
	thinkingMessage    = "Looking into this now."
	elicitationMessage = "I could not find an issue title or comment to work from. What would you like me to do?"
	maxErrorLength     = 500
	errorReportTimeout = 10 * time.Second
)

// LLM produces a reply for a prompt.
type LLM interface {
	Complete(ctx context.Context, apiKey string, prompt string) (string, error)
}

// ActivityPoster posts activities to a Linear agent session. It is implemented by *linear.Controller.
type ActivityPoster interface {
	CreateActivity(ctx context.Context, sessionID string, content linear.ActivityContent) (string, error)
}

// PosterFactory builds an ActivityPoster authenticated with an organization's access token.
type PosterFactory func(ctx context.Context, accessToken string) ActivityPoster

// SessionAgent answers an agent session: it acknowledges with a thought, asks the LLM and posts the reply.
type SessionAgent struct {
	logger  *slog.Logger
	llm     LLM
	posters PosterFactory
}

// Option configures a SessionAgent.
type Option func(*SessionAgent)

func WithLogger(logger *slog.Logger) Option {
	return func(a *SessionAgent) {
		a.logger = logger
	}
}

// WithPosterFactory overrides how Linear clients are created.
func WithPosterFactory(factory PosterFactory) Option {
	return func(a *SessionAgent) {
		a.posters = factory
	}
}

// LinearPosters returns a PosterFactory creating linear.Controllers against apiURL.
func LinearPosters(apiURL string, opts ...linear.Option) PosterFactory {
	return func(ctx context.Context, accessToken string) ActivityPoster {
		return linear.NewController(ctx, accessToken, append([]linear.Option{linear.WithAPIURL(apiURL)}, opts...)...)
	}
}

func NewSessionAgent(llm LLM, opts ...Option) *SessionAgent {
	_inst := &SessionAgent{llm: llm}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.posters == nil {
		_inst.posters = LinearPosters(linear.DefaultAPIURL, linear.WithLogger(_inst.logger))
	}
	_inst.logger = _inst.logger.With("component", "agent")
	return _inst
}

// Run implements dispatch.Capability.
// On failure an error activity is posted on a best-effort basis and the original error is returned.
func (a *SessionAgent) Run(ctx context.Context, task *dispatch.Task) error {
	if task.Credential == nil || task.Credential.AccessToken == "" {
		return errors.New("task carries no access token")
	}
	logger := a.logger.With(slog.Any("task", task))
	poster := a.posters(ctx, task.Credential.AccessToken)

	if _, err := poster.CreateActivity(ctx, task.SessionID, linear.ActivityContent{Type: linear.ActivityThought, Body: thinkingMessage}); err != nil {
		logger.Warn("failed to acknowledge session", slog.Any("error", err))
	}

	if task.Prompt == "" {
		if _, err := poster.CreateActivity(ctx, task.SessionID, linear.ActivityContent{Type: linear.ActivityElicitation, Body: elicitationMessage}); err != nil {
			return errors.Wrap(err, "failed to request more context")
		}
		logger.Info("requested more context for empty prompt")
		return nil
	}

	reply, err := a.llm.Complete(ctx, task.APIKey, task.Prompt)
	if err != nil {
		a.reportError(ctx, poster, task, logger, err)
		return errors.Wrap(err, "agent completion failed")
	}

	if _, err := poster.CreateActivity(ctx, task.SessionID, linear.ActivityContent{Type: linear.ActivityResponse, Body: reply}); err != nil {
		return errors.Wrap(err, "failed to post response")
	}
	return nil
}

func (a *SessionAgent) reportError(ctx context.Context, poster ActivityPoster, task *dispatch.Task, logger *slog.Logger, cause error) {
	// The task context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorReportTimeout)
	defer cancel()
	body := "The agent failed to complete this request: " + helpers.Truncate(cause.Error(), maxErrorLength)
	if _, err := poster.CreateActivity(ctx, task.SessionID, linear.ActivityContent{Type: linear.ActivityError, Body: body}); err != nil {
		logger.Warn("failed to report agent error to session", slog.Any("error", err))
	}
}
