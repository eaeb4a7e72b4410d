// Package config provides a centralized entrypoint for the application parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"go.yaml.in/yaml/v3"
)

const (
	// ModeService runs the application as a long-lived HTTP server.
	ModeService = "service"
	// ModeLambda runs the application as an AWS Lambda function.
	ModeLambda = "lambda"
)

const (
	// StoreBackendSSM keeps tenant credentials in AWS SSM Parameter Store.
	StoreBackendSSM = "ssm"
	// StoreBackendSQL keeps tenant credentials in a SQL database (sqlite3 or postgres).
	StoreBackendSQL = "sql"
	// StoreBackendMemory keeps tenant credentials in process memory. Intended for local development.
	StoreBackendMemory = "memory"
)

var (
	// Global is a struct that contains the global configuration.
	Global global
	// Linear is a struct that contains the configuration for the Linear integration.
	Linear linear
	// Agent is a struct that contains the configuration for the agent capability.
	Agent agent
	// Store is a struct that contains the configuration for the credential store.
	Store store
	// Archive is a struct that contains the configuration for webhook payload archiving.
	Archive archive
	// Service is a struct that contains the configuration for the service mode.
	Service service
	// Lambda is a struct that contains the configuration for the lambda mode.
	Lambda lambda
)

type global struct {
	// Mode is the runtime mode of the application.
	Mode string `yaml:"mode,omitempty" default:"service"`
	// Logging is a struct that contains the logging configuration.
	Logging struct {
		// Verbosity is the verbosity level of the application. It represents slog levels.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace is a flag that enables the caller trace in the logger.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`
}

type linear struct {
	// WebhookSecret is the signing secret shared with Linear for webhook deliveries.
	WebhookSecret string `yaml:"webhookSecret,omitempty"`
	// WebhookPath is the path the ingestion endpoint is served on.
	WebhookPath string `yaml:"webhookPath,omitempty" default:"/webhook"`
	// TimestampTolerance bounds the accepted age of a delivery's webhookTimestamp. Zero disables the check.
	TimestampTolerance time.Duration `yaml:"timestampTolerance,omitempty" default:"60s"`
	// APIURL is the Linear GraphQL endpoint.
	APIURL string `yaml:"apiURL,omitempty" default:"https://api.linear.app/graphql"`
	// OAuth is a struct that contains the OAuth application configuration.
	OAuth struct {
		ClientID     string   `yaml:"clientID,omitempty"`
		ClientSecret string   `yaml:"clientSecret,omitempty"`
		RedirectURL  string   `yaml:"redirectURL,omitempty"`
		AuthURL      string   `yaml:"authURL,omitempty" default:"https://linear.app/oauth/authorize"`
		TokenURL     string   `yaml:"tokenURL,omitempty" default:"https://api.linear.app/oauth/token"`
		Scopes       []string `yaml:"scopes,omitempty" default:"[\"read\", \"write\", \"app:assignable\", \"app:mentionable\"]"`
	} `yaml:"oauth,omitempty"`
}

type agent struct {
	// APIKey is the key used to call the agent capability (Anthropic API).
	APIKey string `yaml:"apiKey,omitempty"`
	// BaseURL is the Anthropic API base URL.
	BaseURL string `yaml:"baseURL,omitempty" default:"https://api.anthropic.com"`
	// Model is the model used to answer agent sessions.
	Model string `yaml:"model,omitempty" default:"claude-sonnet-4-5"`
	// MaxTokens bounds the size of a single agent reply.
	MaxTokens uint `yaml:"maxTokens,omitempty" default:"4096"`
	// SystemPrompt is sent with every agent request.
	SystemPrompt string `yaml:"systemPrompt,omitempty" default:"You are an engineering agent working inside Linear. Answer the task concisely in Markdown."`
	// Timeout bounds a single background dispatch.
	Timeout time.Duration `yaml:"timeout,omitempty" default:"5m"`
}

type store struct {
	// Backend selects the credential store implementation.
	Backend string `yaml:"backend,omitempty" default:"ssm"`
	SSM     struct {
		// Prefix is the SSM parameter path under which one parameter per organization is stored.
		Prefix string `yaml:"prefix,omitempty" default:"/linear-agent-app/tokens"`
	} `yaml:"ssm,omitempty"`
	SQL struct {
		// Driver is either sqlite3 or postgres.
		Driver string `yaml:"driver,omitempty" default:"sqlite3"`
		DSN    string `yaml:"dsn,omitempty" default:"file:linear-agent-app.db?cache=shared"`
	} `yaml:"sql,omitempty"`
}

type archive struct {
	// Enabled toggles S3 archiving of verified agent session payloads.
	Enabled bool   `yaml:"enabled,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
	Prefix  string `yaml:"prefix,omitempty" default:"webhooks/"`
}

type service struct {
	Addr    string        `yaml:"addr,omitempty"`
	Port    string        `yaml:"port,omitempty" default:"8080"`
	Timeout time.Duration `yaml:"timeout,omitempty" default:"10s"`
	// DrainTimeout bounds how long shutdown waits for scheduled dispatches to settle.
	DrainTimeout time.Duration `yaml:"drainTimeout,omitempty" default:"5m"`
}

type lambda struct {
	PayloadType string `yaml:"payloadType,omitempty" default:"api-gateway-v2"`
	// FunctionName is the function asynchronously invoked to run agent jobs, normally this function itself.
	FunctionName string `yaml:"functionName,omitempty"`
}

// SetDefaults sets the default values for the configuration.
func SetDefaults() error {
	return errors.Join(
		defaults.Set(&Global),
		defaults.Set(&Linear),
		defaults.Set(&Agent),
		defaults.Set(&Store),
		defaults.Set(&Archive),
		defaults.Set(&Service),
		defaults.Set(&Lambda),
	)
}

// LoadFromFile loads the configuration from a file.
func LoadFromFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // If the file does not exist, we ignore it.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	if !fstat.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	type all struct {
		Global  global  `yaml:"global,omitempty"`
		Linear  linear  `yaml:"linear,omitempty"`
		Agent   agent   `yaml:"agent,omitempty"`
		Store   store   `yaml:"store,omitempty"`
		Archive archive `yaml:"archive,omitempty"`
		Service service `yaml:"service,omitempty"`
		Lambda  lambda  `yaml:"lambda,omitempty"`
	}
	var a all
	if err = yaml.Unmarshal(content, &a); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
	}
	Global = a.Global
	Linear = a.Linear
	Agent = a.Agent
	Store = a.Store
	Archive = a.Archive
	Service = a.Service
	Lambda = a.Lambda

	return nil
}
