// Package agent implements the agent capability that answers Linear agent sessions.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 4096

	anthropicVersion = "2023-06-01"
)

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens uint      `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Claude is a minimal client of the Anthropic Messages API.
type Claude struct {
	logger       *slog.Logger
	httpClient   *http.Client
	baseURL      string
	model        string
	maxTokens    uint
	systemPrompt string
}

// ClaudeOption configures a Claude client.
type ClaudeOption func(*Claude)

func WithClaudeLogger(logger *slog.Logger) ClaudeOption {
	return func(c *Claude) {
		c.logger = logger
	}
}

func WithHTTPClient(client *http.Client) ClaudeOption {
	return func(c *Claude) {
		c.httpClient = client
	}
}

func WithBaseURL(url string) ClaudeOption {
	return func(c *Claude) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

func WithModel(model string) ClaudeOption {
	return func(c *Claude) {
		if model != "" {
			c.model = model
		}
	}
}

func WithMaxTokens(maxTokens uint) ClaudeOption {
	return func(c *Claude) {
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

func WithSystemPrompt(systemPrompt string) ClaudeOption {
	return func(c *Claude) {
		c.systemPrompt = systemPrompt
	}
}

func NewClaude(opts ...ClaudeOption) *Claude {
	_inst := &Claude{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		maxTokens:  DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "claude")
	return _inst
}

// Complete sends prompt as a single user message and returns the concatenated text of the reply.
func (c *Claude) Complete(ctx context.Context, apiKey string, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    c.systemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to call messages API")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", errors.Errorf("messages API returned %d: %s: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return "", errors.Errorf("messages API returned %d: %s", resp.StatusCode, helpers.Truncate(string(raw), 256))
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "failed to parse response")
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.Errorf("messages API returned no text (stop reason %q)", out.StopReason)
	}

	c.logger.Debug("completion received",
		slog.String("id", out.ID),
		slog.String("stopReason", out.StopReason),
		slog.Int("inputTokens", out.Usage.InputTokens),
		slog.Int("outputTokens", out.Usage.OutputTokens))
	return sb.String(), nil
}
