package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DeliveryPolicy bounds email delivery attempts. SMTP hiccups are
// usually transient, so everything short of a cancelled context is
// retried.
func DeliveryPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "alert_delivery",
		Attempts: 4,
		Backoff:  ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("delivery retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("delivery retries exhausted", zap.Error(err))
			}
		},
	}
}
