package alert

import (
	"time"

	"github.com/vigilo/vigilo/internal/domain/target"
)

// Deterministic titles keyed by target kind. The cooldown key is
// (org, title), so identical failures collapse into one notification
// per window.
const (
	TitleEndpointDown        = "Endpoint Down"
	TitleDatabaseUnreachable = "Database Unreachable"
)

// Event is the notification intent published to the alerts topic.
// TargetID and Kind form a structured correlation key so downstream
// consumers never have to guess intent from the title text.
type Event struct {
	OrgID    string      `json:"org_id"`
	TargetID string      `json:"target_id"`
	Kind     target.Kind `json:"kind"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	FiredAt  time.Time   `json:"fired_at"`
}

// OrgSettings is the slice of org notification preferences the
// delivery service consults before sending email.
type OrgSettings struct {
	OrgID                  string
	NotifyOnAlertTriggered bool
	NotificationEmails     []string
}
