package workflow

import (
	"context"
	"time"
)

const (
	// DefaultPollInterval is the cadence of both requester and approver polling.
	DefaultPollInterval = 2 * time.Second
	// CountdownTick is the local countdown cadence.
	CountdownTick = time.Second
)

// Flow parameterizes the generic workflow for one concrete request type.
type Flow struct {
	Kind Kind
	// Window is the fixed progress-bar denominator. Zero means the flow has
	// no expiry and runs no countdown.
	Window              time.Duration
	PollInterval        time.Duration
	DefaultRejectReason string
	// CountedApproval means approve carries a user-entered stamp count.
	CountedApproval bool
}

func (f Flow) pollInterval() time.Duration {
	if f.PollInterval > 0 {
		return f.PollInterval
	}
	return DefaultPollInterval
}

// Fetcher loads a request by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (Request, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (Request, error)

func (f FetcherFunc) Fetch(ctx context.Context, id string) (Request, error) { return f(ctx, id) }

// Approval is the payload of an approve action.
type Approval struct {
	Count *int
}

// Source is the approver-side collaborator for one flow.
type Source interface {
	ListPending(ctx context.Context, storeID string) ([]Request, error)
	Approve(ctx context.Context, id string, approval Approval) error
	Reject(ctx context.Context, id, reason string) error
}

// Notifier is told about requests that appear in a queue after the first refresh.
type Notifier interface {
	Notify(ctx context.Context, req Request) error
}
