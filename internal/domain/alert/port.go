package alert

import (
	"context"
	"time"
)

// Delivery hands a notification intent to the delivery pipeline.
// Fire-and-forget from the notifier's perspective; delivery retries
// belong to the consumer side.
type Delivery interface {
	Enqueue(ctx context.Context, ev Event) error
}

// Cooldown is an atomic check-and-set with TTL keyed by (org, title).
// Acquire returns true when the key was absent and is now set for ttl;
// false when a previous notification is still inside its window.
// Implementations must make check-then-set atomic per key.
type Cooldown interface {
	Acquire(ctx context.Context, orgID, title string, ttl time.Duration) (bool, error)
}

// SettingsReader exposes org notification preferences to the delivery
// service. The notifier core does not consult these; one authority per
// concern.
type SettingsReader interface {
	OrgSettings(ctx context.Context, orgID string) (*OrgSettings, error)
	AdminEmails(ctx context.Context, orgID string) ([]string, error)
}

// Log records delivered notifications, best-effort.
type Log interface {
	RecordDelivery(ctx context.Context, ev Event, recipients []string) error
}

type Clock interface {
	Now() time.Time
}
