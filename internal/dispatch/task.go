package dispatch

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/isometry/linear-agent-app/internal/credentials"
)

// Task is one unit of agent work for a Linear agent session.
type Task struct {
	ID             string
	SessionID      string
	OrganizationID string
	Prompt         string
	Credential     *credentials.Credential
	APIKey         string
}

// NewTask creates a Task with a fresh id.
func NewTask(sessionID string, prompt string, credential *credentials.Credential, apiKey string) *Task {
	t := &Task{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Prompt:     prompt,
		Credential: credential,
		APIKey:     apiKey,
	}
	if credential != nil {
		t.OrganizationID = credential.OrganizationID
	}
	return t
}

// LogValue leaves the prompt, the credential and the API key out of the logs.
func (t *Task) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", t.ID),
		slog.String("sessionId", t.SessionID),
		slog.String("organizationId", t.OrganizationID),
		slog.Int("promptLength", len(t.Prompt)),
	)
}
