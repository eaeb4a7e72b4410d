package event

// Kind is the outcome of classifying a verified payload.
type Kind int

const (
	// Ignored payloads are acknowledged without further processing.
	Ignored Kind = iota
	// Accepted payloads carry an agent session event to dispatch.
	Accepted
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	default:
		return "ignored"
	}
}

// Classification is the result of Classify. AgentSession is set only when Kind is Accepted.
type Classification struct {
	Kind         Kind
	AgentSession *AgentSessionEvent
}

// Classify discriminates a verified payload by its declared type.
// Only agent session events carrying tenant and session ids are accepted; every other type,
// including types unknown to this build, is ignored.
func Classify(p *Payload) Classification {
	if p == nil {
		return Classification{Kind: Ignored}
	}
	switch p.Type {
	case AgentSession:
		e := p.agentSessionEvent()
		if e == nil {
			return Classification{Kind: Ignored}
		}
		return Classification{Kind: Accepted, AgentSession: e}
	case Issue, Comment, IssueLabel, Reaction, Project, ProjectUpdate, Cycle,
		Attachment, OAuthApp, PermissionChange, AppUserNotification:
		return Classification{Kind: Ignored}
	default:
		return Classification{Kind: Ignored}
	}
}

// IsKnown reports whether t is a payload type this build recognises.
func IsKnown(t Type) bool {
	switch t {
	case AgentSession, Issue, Comment, IssueLabel, Reaction, Project, ProjectUpdate, Cycle,
		Attachment, OAuthApp, PermissionChange, AppUserNotification:
		return true
	default:
		return false
	}
}
