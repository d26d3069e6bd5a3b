package flows

import (
	"context"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/kkookk/kkookk/internal/workflow"
)

// createWithRetry runs op until it succeeds or fails for a reason another
// attempt cannot fix. Callers fix the idempotency token before the first
// attempt so every retry carries the same one.
func createWithRetry[T any](ctx context.Context, o options, kind workflow.Kind, token string, op func(context.Context) (T, error)) (T, error) {
	attempt := 0
	return backoff.RetryWithData(func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		err = local(err)
		if workflow.Classify(err) != workflow.ClassTransient {
			return v, backoff.Permanent(err)
		}
		slog.Debug("create failed, retrying", "kind", kind, "client_request_id", token, "attempt", attempt, "error", err)
		return v, err
	}, backoff.WithContext(o.newBackOff(), ctx))
}
