package workflow

import "strings"

// Status is the server-reported lifecycle state of a request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
)

// ParseStatus normalizes a wire value. Unknown values are kept as-is so they
// render as an error instead of being coerced.
func ParseStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// IsPending reports whether the request is still waiting for a decision.
// SUBMITTED is the migration flow's name for pending.
func (s Status) IsPending() bool {
	return s == StatusPending || s == StatusSubmitted
}

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Known reports whether s is part of the state machine.
func (s Status) Known() bool {
	return s.IsPending() || s.IsTerminal()
}

// View is the page a status renders as.
type View int

const (
	ViewError View = iota
	ViewWaiting
	ViewSuccess
	ViewFailure
	ViewExpired
)

func (v View) String() string {
	switch v {
	case ViewWaiting:
		return "waiting"
	case ViewSuccess:
		return "success"
	case ViewFailure:
		return "failure"
	case ViewExpired:
		return "expired"
	}
	return "error"
}

// ViewFor picks exactly one view for a status. Missing or unknown statuses
// map to ViewError, never to waiting.
func ViewFor(s Status) View {
	switch {
	case s.IsPending():
		return ViewWaiting
	case s == StatusApproved:
		return ViewSuccess
	case s == StatusRejected:
		return ViewFailure
	case s == StatusExpired:
		return ViewExpired
	}
	return ViewError
}
