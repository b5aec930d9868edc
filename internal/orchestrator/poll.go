package orchestrator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

var errNotYet = errors.New("condition not met yet")

// Poll evaluates cond, then again every interval, until it returns true.
// There is no retry limit. An error from cond stops polling and is
// returned as is; cancelling ctx returns ctx.Err().
func Poll(ctx context.Context, interval time.Duration, cond func(ctx context.Context) (bool, error)) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	err := backoff.Retry(func() error {
		done, err := cond(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errNotYet
		}
		return nil
	}, b)
	if errors.Is(err, errNotYet) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
