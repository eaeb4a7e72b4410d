// Package prompt builds the task text handed to the agent from an agent session event.
package prompt

import "github.com/isometry/linear-agent-app/internal/controllers/linear/event"

// Build returns the prompt for e. Empty strings count as absent.
//
//	title and comment: "Issue: {title}\n\nTask: {comment}"
//	title only:        "Task: {title}"
//	comment only:      "Task: {comment}"
//	neither:           ""
func Build(e *event.AgentSessionEvent) string {
	if e == nil {
		return ""
	}
	switch title, comment := e.IssueTitle, e.CommentBody; {
	case title != "" && comment != "":
		return "Issue: " + title + "\n\nTask: " + comment
	case title != "":
		return "Task: " + title
	case comment != "":
		return "Task: " + comment
	default:
		return ""
	}
}
