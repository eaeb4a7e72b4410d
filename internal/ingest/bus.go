// Package ingest provides the state carried through the webhook ingestion pipeline.
package ingest

import (
	"log/slog"

	"github.com/isometry/linear-agent-app/internal/controllers/linear/event"
	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/models"
)

// State is the pipeline stage a delivery reached.
type State int

const (
	ReceivingBody State = iota
	Verifying
	Classifying
	ResolvingCredential
	BuildingPrompt
	Scheduling
	Responding
)

var stateNames = [...]string{
	ReceivingBody:       "receiving-body",
	Verifying:           "verifying",
	Classifying:         "classifying",
	ResolvingCredential: "resolving-credential",
	BuildingPrompt:      "building-prompt",
	Scheduling:          "scheduling",
	Responding:          "responding",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Bus carries one webhook delivery through the processors.
type Bus struct {
	Body    []byte
	Headers map[string]string

	State          State
	Payload        *event.Payload
	Classification event.Classification
	Credential     *credentials.Credential
	Prompt         string
	Task           *dispatch.Task

	Response models.Response
	// Done stops the chain with Response as the final answer.
	Done bool
}

// NewBus creates a Bus for a received delivery.
func NewBus(body []byte, headers map[string]string) *Bus {
	return &Bus{Body: body, Headers: headers, State: ReceivingBody}
}

// Advance records that the pipeline entered state s.
func (b *Bus) Advance(s State) {
	b.State = s
}

// Respond sets the final response and stops the chain.
func (b *Bus) Respond(response models.Response) *Bus {
	b.Response = response
	b.Done = true
	return b
}

// Event returns the accepted agent session event, if any.
func (b *Bus) Event() *event.AgentSessionEvent {
	return b.Classification.AgentSession
}

// LogValue returns the identifiers known at the current stage.
func (b *Bus) LogValue() slog.Value {
	logAttr := make([]slog.Attr, 1, 5)
	logAttr[0] = slog.String("state", b.State.String())
	if b.Payload != nil {
		logAttr = append(logAttr, slog.String("type", string(b.Payload.Type)))
	}
	if e := b.Event(); e != nil {
		logAttr = append(logAttr, slog.Any("event", e))
	}
	if b.Task != nil {
		logAttr = append(logAttr, slog.String("taskId", b.Task.ID))
	}
	if b.Response.StatusCode != 0 {
		logAttr = append(logAttr, slog.Int("statusCode", b.Response.StatusCode))
	}
	return slog.GroupValue(logAttr...)
}
