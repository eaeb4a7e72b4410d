package dispatch

import (
	"encoding/json"
	"log/slog"
)

// Job is the part of a Task that may leave the process. It carries no secrets: the receiving
// Worker resolves the credential again and uses its own agent API key.
type Job struct {
	ID             string `json:"id"`
	SessionID      string `json:"sessionId"`
	OrganizationID string `json:"organizationId"`
	Prompt         string `json:"prompt"`
}

// NewJob returns the Job describing task.
func NewJob(task *Task) *Job {
	return &Job{
		ID:             task.ID,
		SessionID:      task.SessionID,
		OrganizationID: task.OrganizationID,
		Prompt:         task.Prompt,
	}
}

func (j *Job) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", j.ID),
		slog.String("sessionId", j.SessionID),
		slog.String("organizationId", j.OrganizationID),
		slog.Int("promptLength", len(j.Prompt)),
	)
}

// envelope is the invocation payload carrying a Job.
type envelope struct {
	Job *Job `json:"linearAgentJob,omitempty"`
}

// EncodeJob returns the invocation payload for job.
func EncodeJob(job *Job) ([]byte, error) {
	return json.Marshal(envelope{Job: job})
}

// DecodeJob extracts a Job from an invocation payload. It reports false for any other event.
func DecodeJob(raw []byte) (*Job, bool) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil || e.Job == nil || e.Job.SessionID == "" {
		return nil, false
	}
	return e.Job, true
}
