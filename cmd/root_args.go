package cmd

import (
	"time"

	"github.com/isometry/linear-agent-app/internal/config"
	"github.com/isometry/linear-agent-app/internal/helpers"
)

var envMapString = map[*string]boundEnvVar[string]{
	&config.Global.Mode: {
		Name:        "mode",
		Description: "The application runtime mode. Possible values are 'lambda' and 'service'",
		Short:       helpers.Ptr("m"),
	},
	&config.Linear.WebhookSecret: {
		Name:        "linear-webhook-secret",
		Description: "The signing secret used to verify incoming Linear webhook deliveries",
		Env:         helpers.Ptr("LINEAR_WEBHOOK_SECRET"),
	},
	&config.Linear.WebhookPath: {
		Name:        "linear-webhook-path",
		Description: "The path accepting Linear webhook deliveries",
	},
	&config.Linear.APIURL: {
		Name:        "linear-api-url",
		Description: "The Linear GraphQL API endpoint",
	},
	&config.Linear.OAuth.ClientID: {
		Name:        "linear-client-id",
		Description: "The Linear OAuth application client ID",
		Env:         helpers.Ptr("LINEAR_CLIENT_ID"),
	},
	&config.Linear.OAuth.ClientSecret: {
		Name:        "linear-client-secret",
		Description: "The Linear OAuth application client secret",
		Env:         helpers.Ptr("LINEAR_CLIENT_SECRET"),
	},
	&config.Linear.OAuth.RedirectURL: {
		Name:        "linear-redirect-url",
		Description: "The OAuth callback URL registered with the Linear application",
	},
	&config.Linear.OAuth.AuthURL: {
		Name:        "linear-oauth-auth-url",
		Description: "The Linear OAuth authorization endpoint",
		Hidden:      true,
	},
	&config.Linear.OAuth.TokenURL: {
		Name:        "linear-oauth-token-url",
		Description: "The Linear OAuth token endpoint",
		Hidden:      true,
	},
	&config.Agent.APIKey: {
		Name:        "agent-api-key",
		Description: "The API key used by the agent capability",
		Env:         helpers.Ptr("AGENT_API_KEY"),
	},
	&config.Agent.BaseURL: {
		Name:        "agent-base-url",
		Description: "The Anthropic API base URL",
	},
	&config.Agent.Model: {
		Name:        "agent-model",
		Description: "The model answering agent sessions",
	},
	&config.Agent.SystemPrompt: {
		Name:        "agent-system-prompt",
		Description: "The system prompt sent with every agent request",
	},
	&config.Store.Backend: {
		Name:        "store-backend",
		Description: "The credential store backend. Supported values are 'ssm', 'sql' and 'memory'",
		Short:       helpers.Ptr("s"),
	},
	&config.Store.SSM.Prefix: {
		Name:        "store-ssm-prefix",
		Description: "The SSM parameter path holding one credential per organization",
	},
	&config.Store.SQL.Driver: {
		Name:        "store-sql-driver",
		Description: "The SQL driver. Supported values are 'sqlite3' and 'postgres'",
	},
	&config.Store.SQL.DSN: {
		Name:        "store-sql-dsn",
		Description: "The SQL data source name",
	},
	&config.Archive.Bucket: {
		Name:        "archive-s3-bucket",
		Description: "The S3 bucket receiving verified agent session payloads",
	},
	&config.Archive.Prefix: {
		Name:        "archive-s3-prefix",
		Description: "The key prefix of archived payloads",
	},
}

var envMapBool = map[*bool]boundEnvVar[bool]{
	&config.Global.Logging.CallerTrace: {
		Name:        "verbosity-caller-trace",
		Description: "Enable caller trace in logs",
		Short:       helpers.Ptr("V"),
	},
	&config.Archive.Enabled: {
		Name:        "archive-s3",
		Description: "Enable S3 archiving of verified agent session payloads",
	},
}

var envMapCount = map[*int]boundEnvVar[int]{
	&config.Global.Logging.Verbosity: {
		Name:        "verbosity",
		Description: "Increase logger verbosity (default WarnLevel)",
		Short:       helpers.Ptr("v"),
	},
}

var envMapUint = map[*uint]boundEnvVar[uint]{
	&config.Agent.MaxTokens: {
		Name:        "agent-max-tokens",
		Description: "The maximum number of tokens in a single agent reply",
	},
}

var envMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Linear.TimestampTolerance: {
		Name:        "linear-timestamp-tolerance",
		Description: "The maximum accepted age of a webhook delivery. Zero disables the check",
	},
	&config.Agent.Timeout: {
		Name:        "agent-timeout",
		Description: "The time budget of a single dispatched agent session",
	},
}

var envMapStringSlice = map[*[]string]boundEnvVar[[]string]{
	&config.Linear.OAuth.Scopes: {
		Name:        "linear-oauth-scopes",
		Description: "The scopes requested during OAuth authorization",
	},
}
