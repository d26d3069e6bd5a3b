// Package flows binds the generic approval workflow to the three concrete
// request types of the stamp-card backend.
package flows

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/workflow"
)

// Issuance is a customer asking the store for one stamp.
var Issuance = workflow.Flow{
	Kind:                workflow.KindIssuance,
	Window:              90 * time.Second,
	PollInterval:        workflow.DefaultPollInterval,
	DefaultRejectReason: "거부됨",
}

// Redemption is a customer spending a reward while staff confirm it.
var Redemption = workflow.Flow{
	Kind:         workflow.KindRedemption,
	Window:       45 * time.Second,
	PollInterval: workflow.DefaultPollInterval,
}

// Migration is a customer asking to convert a paper card. It never expires
// and approval carries the number of stamps to credit.
var Migration = workflow.Flow{
	Kind:                workflow.KindMigration,
	PollInterval:        workflow.DefaultPollInterval,
	DefaultRejectReason: "반려됨",
	CountedApproval:     true,
}

// ByKind looks up a flow configuration.
func ByKind(kind workflow.Kind) (workflow.Flow, bool) {
	switch kind {
	case workflow.KindIssuance:
		return Issuance, true
	case workflow.KindRedemption:
		return Redemption, true
	case workflow.KindMigration:
		return Migration, true
	}
	return workflow.Flow{}, false
}

type options struct {
	newBackOff func() backoff.BackOff
}

// Option configures a flow service.
type Option func(*options)

// WithBackOff replaces the retry policy used for idempotent creation calls.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *options) {
		if fn != nil {
			o.newBackOff = fn
		}
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 300 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

func buildOptions(opts []Option) options {
	o := options{newBackOff: defaultBackOff}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", workflow.ErrInvalidID, id)
	}
	return n, nil
}

func parseStoreID(storeID string) (int64, error) {
	n, err := strconv.ParseInt(storeID, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", workflow.ErrNoStore, storeID)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// local maps client-side failures onto workflow sentinels so the workflow
// never retries them.
func local(err error) error {
	if errors.Is(err, api.ErrMissingSession) {
		return fmt.Errorf("%w: %w", workflow.ErrNoSession, err)
	}
	return err
}

func notFound(kind workflow.Kind, id string) error {
	return &api.Error{
		StatusCode: 404,
		Message:    fmt.Sprintf("%s request %s not found", kind, id),
	}
}
