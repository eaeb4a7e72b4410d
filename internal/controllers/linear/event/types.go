// Package event provides the typed Linear webhook payload and its classification.
package event

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// Type represents the declared type of a Linear webhook payload.
type Type string

const (
	// AgentSession represents an agent session event, the only type acted upon.
	AgentSession Type = "AgentSessionEvent"
	// Issue represents an issue event.
	Issue Type = "Issue"
	// Comment represents a comment event.
	Comment Type = "Comment"
	// IssueLabel represents an issue label event.
	IssueLabel Type = "IssueLabel"
	// Reaction represents an emoji reaction event.
	Reaction Type = "Reaction"
	// Project represents a project event.
	Project Type = "Project"
	// ProjectUpdate represents a project update event.
	ProjectUpdate Type = "ProjectUpdate"
	// Cycle represents a cycle event.
	Cycle Type = "Cycle"
	// Attachment represents an attachment event.
	Attachment Type = "Attachment"
	// OAuthApp represents an OAuth application lifecycle event (e.g. revocation).
	OAuthApp Type = "OAuthApp"
	// PermissionChange represents an app team access change event.
	PermissionChange Type = "PermissionChange"
	// AppUserNotification represents a notification addressed to the app user.
	AppUserNotification Type = "AppUserNotification"
)

// Payload is the envelope shared by every Linear webhook delivery.
type Payload struct {
	Type             Type        `json:"type"`
	Action           string      `json:"action,omitempty"`
	OrganizationID   string      `json:"organizationId,omitempty"`
	WebhookID        string      `json:"webhookId,omitempty"`
	WebhookTimestamp int64       `json:"webhookTimestamp,omitempty"`
	AgentSession     *SessionRef `json:"agentSession,omitempty"`
	PromptContext    string      `json:"promptContext,omitempty"`
}

// SessionRef is the agentSession object carried by AgentSessionEvent payloads.
type SessionRef struct {
	ID      string      `json:"id"`
	Issue   *IssueRef   `json:"issue,omitempty"`
	Comment *CommentRef `json:"comment,omitempty"`
}

// IssueRef is the issue an agent session was started from.
type IssueRef struct {
	ID         string `json:"id,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
}

// CommentRef is the comment that triggered an agent session.
type CommentRef struct {
	ID   string `json:"id,omitempty"`
	Body string `json:"body,omitempty"`
}

// AgentSessionEvent is the accepted variant of a verified payload.
// OrganizationID and SessionID are always set; IssueTitle and CommentBody are empty when absent.
type AgentSessionEvent struct {
	OrganizationID  string
	SessionID       string
	Action          string
	IssueID         string
	IssueIdentifier string
	IssueTitle      string
	CommentBody     string
}

// LogValue returns the identifiers of the event, leaving user content out of the logs.
func (e *AgentSessionEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("organizationId", e.OrganizationID),
		slog.String("sessionId", e.SessionID),
	}
	if e.Action != "" {
		attrs = append(attrs, slog.String("action", e.Action))
	}
	if e.IssueIdentifier != "" {
		attrs = append(attrs, slog.String("issue", e.IssueIdentifier))
	}
	return slog.GroupValue(attrs...)
}

// Parse decodes a raw webhook body into a Payload.
// It fails when the body is not JSON, carries no type, or is an agent session event without tenant or session id.
func Parse(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrap(err, "invalid JSON payload")
	}
	if p.Type == "" {
		return nil, errors.New("missing payload type")
	}
	if p.Type == AgentSession {
		if p.OrganizationID == "" {
			return nil, errors.New("agent session event without organizationId")
		}
		if p.AgentSession == nil || p.AgentSession.ID == "" {
			return nil, errors.New("agent session event without agentSession.id")
		}
	}
	return &p, nil
}

// Timestamp returns the delivery timestamp and whether the payload carried one.
func (p *Payload) Timestamp() (time.Time, bool) {
	if p.WebhookTimestamp == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(p.WebhookTimestamp), true
}

// agentSessionEvent returns nil unless the payload carries the tenant and session ids.
func (p *Payload) agentSessionEvent() *AgentSessionEvent {
	if p.OrganizationID == "" || p.AgentSession == nil || p.AgentSession.ID == "" {
		return nil
	}
	e := &AgentSessionEvent{
		OrganizationID: p.OrganizationID,
		SessionID:      p.AgentSession.ID,
		Action:         p.Action,
	}
	if issue := p.AgentSession.Issue; issue != nil {
		e.IssueID = issue.ID
		e.IssueIdentifier = issue.Identifier
		e.IssueTitle = issue.Title
	}
	if comment := p.AgentSession.Comment; comment != nil {
		e.CommentBody = comment.Body
	}
	return e
}
