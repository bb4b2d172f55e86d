package provisioning

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// compensationDelays is the fixed 100ms/200ms/no-delay schedule spec.md
// assigns to compensating DB operations in the destroy and rollback paths —
// deliberately not exponential, since these are short best-effort retries
// against a store expected to recover quickly, not a remote API. Delay i is
// waited before attempt i+1; there is no delay before the first attempt and
// none after the last.
var compensationDelays = [...]time.Duration{100 * time.Millisecond, 200 * time.Millisecond}

const compensationAttempts = len(compensationDelays) + 1

// withCompensationRetry runs fn up to compensationAttempts times, sleeping
// the configured delay between attempts, returning the last error if every
// attempt fails.
func withCompensationRetry(ctx context.Context, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < compensationAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(compensationDelays[attempt-1]):
			}
		}

		if err := fn(ctx); err != nil {
			lastErr = err
			logger.Warn("compensating operation failed, will retry",
				zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		return nil
	}
	return lastErr
}
