package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vigilo/vigilo/internal/domain/alert"
)

var (
	_ alert.SettingsReader = (*SettingsRepo)(nil)
	_ alert.Log            = (*SettingsRepo)(nil)
)

// SettingsRepo serves org notification preferences to the delivery
// service and records delivered notifications.
type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) *SettingsRepo { return &SettingsRepo{db: db} }

const (
	qOrgSettings = `
SELECT org_id, notify_on_alert_triggered, notification_emails
FROM org_settings
WHERE org_id = $1;
`

	qAdminEmails = `
SELECT u.email
FROM users u
JOIN org_members m ON m.user_id = u.id
WHERE m.org_id = $1 AND m.role = 'admin'
ORDER BY u.email;
`

	qInsertNotification = `
INSERT INTO notifications (org_id, target_id, title, message, recipients, sent_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
)

func (r *SettingsRepo) OrgSettings(ctx context.Context, orgID string) (*alert.OrgSettings, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s alert.OrgSettings
	err := r.db.Pool.QueryRow(ctx, qOrgSettings, orgID).Scan(
		&s.OrgID,
		&s.NotifyOnAlertTriggered,
		&s.NotificationEmails,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// an org without a settings row notifies by default
			return &alert.OrgSettings{OrgID: orgID, NotifyOnAlertTriggered: true}, nil
		}
		return nil, fmt.Errorf("query org settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepo) AdminEmails(ctx context.Context, orgID string) ([]string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qAdminEmails, orgID)
	if err != nil {
		return nil, fmt.Errorf("query admin emails: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *SettingsRepo) RecordDelivery(ctx context.Context, ev alert.Event, recipients []string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, qInsertNotification,
		ev.OrgID, ev.TargetID, ev.Title, ev.Message, recipients, ev.FiredAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
