package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/isometry/linear-agent-app/internal/agent"
	"github.com/isometry/linear-agent-app/internal/config"
	"github.com/isometry/linear-agent-app/internal/controllers/aws"
	"github.com/isometry/linear-agent-app/internal/controllers/linear"
	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/handler"
	"github.com/isometry/linear-agent-app/internal/handler/processor"
	"github.com/isometry/linear-agent-app/internal/oauth"
	"github.com/isometry/linear-agent-app/internal/runtime"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// application is the wired set of components shared by both runtime modes.
type application struct {
	runtime   *runtime.Runtime
	scheduler *dispatch.BackgroundScheduler
	closers   []io.Closer
}

func (a *application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// setup wires the credential store, the agent capability, the webhook handler and the OAuth flow into a runtime.
// In service mode agent tasks run on the in-process scheduler. In lambda mode they are handed off to an
// asynchronous invocation of the function, and the runtime only drains archive uploads before returning.
func setup(ctx context.Context, lambdaMode bool) (*application, error) {
	app := &application{}

	var awsController *aws.Controller
	awsClient := func() (*aws.Controller, error) {
		if awsController != nil {
			return awsController, nil
		}
		logger.Debug("creating AWS controller...")
		c, err := aws.NewController(ctx, aws.WithLogger(componentLogger("aws")))
		if err != nil {
			return nil, err
		}
		awsController = c
		return c, nil
	}

	logger.Debug("creating credential store...", slog.String("backend", config.Store.Backend))
	var store credentials.Store
	switch config.Store.Backend {
	case config.StoreBackendSSM:
		c, err := awsClient()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create SSM credential store")
		}
		store = credentials.NewSSMStore(c, config.Store.SSM.Prefix)
	case config.StoreBackendSQL:
		s, err := credentials.OpenSQLStore(ctx, config.Store.SQL.Driver, config.Store.SQL.DSN)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create SQL credential store")
		}
		app.closers = append(app.closers, s)
		store = s
	case config.StoreBackendMemory:
		logger.Warn("using in-memory credential store; authorizations are lost on restart")
		store = credentials.NewMemoryStore()
	default:
		return nil, pkgerrors.Errorf("unsupported credential store backend: %s", config.Store.Backend)
	}

	app.scheduler = dispatch.NewBackgroundScheduler(dispatch.WithSchedulerLogger(componentLogger("scheduler")))

	claude := agent.NewClaude(
		agent.WithClaudeLogger(componentLogger("claude")),
		agent.WithBaseURL(config.Agent.BaseURL),
		agent.WithModel(config.Agent.Model),
		agent.WithMaxTokens(config.Agent.MaxTokens),
		agent.WithSystemPrompt(config.Agent.SystemPrompt))
	sessionAgent := agent.NewSessionAgent(claude,
		agent.WithLogger(logger),
		agent.WithPosterFactory(agent.LinearPosters(config.Linear.APIURL, linear.WithLogger(componentLogger("linear")))))
	resolver := credentials.NewResolver(store, credentials.WithLogger(componentLogger("credentials")))

	var (
		dispatcher processor.TaskDispatcher
		worker     *dispatch.Worker
	)
	if lambdaMode {
		if config.Lambda.FunctionName == "" {
			return nil, pkgerrors.New("lambda function name is required to hand off agent jobs")
		}
		c, err := awsClient()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create Lambda invoker")
		}
		dispatcher = dispatch.NewHandoffDispatcher(c, config.Lambda.FunctionName,
			dispatch.WithHandoffLogger(componentLogger("dispatcher")))
		worker = dispatch.NewWorker(resolver, sessionAgent, config.Agent.APIKey,
			dispatch.WithWorkerLogger(componentLogger("worker")),
			dispatch.WithWorkerTimeout(config.Agent.Timeout))
	} else {
		dispatcher = dispatch.NewDispatcher(app.scheduler, sessionAgent,
			dispatch.WithLogger(componentLogger("dispatcher")),
			dispatch.WithTimeout(config.Agent.Timeout))
	}

	handlerOpts := []handler.Option{
		handler.WithLogger(componentLogger("webhook-handler")),
		handler.WithTimestampTolerance(config.Linear.TimestampTolerance),
	}
	if config.Archive.Enabled {
		c, err := awsClient()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create S3 archiver")
		}
		handlerOpts = append(handlerOpts, handler.WithArchive(c, app.scheduler, config.Archive.Bucket, config.Archive.Prefix))
	}

	logger.Debug("creating webhook handler...")
	hdl, err := handler.NewHandler(
		handler.Secrets{
			WebhookSecret: config.Linear.WebhookSecret,
			AgentAPIKey:   config.Agent.APIKey,
		},
		resolver,
		dispatcher,
		handlerOpts...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create webhook handler")
	}

	flow := oauth.NewController(&oauth2.Config{
		ClientID:     config.Linear.OAuth.ClientID,
		ClientSecret: config.Linear.OAuth.ClientSecret,
		RedirectURL:  config.Linear.OAuth.RedirectURL,
		Scopes:       config.Linear.OAuth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  config.Linear.OAuth.AuthURL,
			TokenURL: config.Linear.OAuth.TokenURL,
		},
	}, store,
		oauth.WithLogger(componentLogger("oauth")),
		oauth.WithAPIURL(config.Linear.APIURL))

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(componentLogger("runtime")),
		runtime.WithOAuth(flow),
		runtime.WithWebhookPath(config.Linear.WebhookPath),
		runtime.WithLambdaPayloadType(config.Lambda.PayloadType),
	}
	if lambdaMode {
		runtimeOpts = append(runtimeOpts,
			runtime.WithJobRunner(worker),
			runtime.WithDrainer(app.scheduler))
	}

	logger.Debug("creating runtime...")
	app.runtime = runtime.NewRuntime(hdl, runtimeOpts...)
	return app, nil
}
