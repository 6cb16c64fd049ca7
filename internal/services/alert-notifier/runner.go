package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/domain/alert"
	"github.com/vigilo/vigilo/internal/obs"
	"github.com/vigilo/vigilo/internal/obs/retry"
	kafkax "github.com/vigilo/vigilo/internal/repository/kafka"
)

// EmailSender is what the runner needs from the mailer.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

var (
	eventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_notifier_events_consumed_total",
		Help: "Alert events consumed from the alerts topic.",
	})
	emailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_notifier_emails_sent_total",
		Help: "Alert emails delivered.",
	})
	eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_notifier_events_skipped_total",
		Help: "Alert events dropped by org preference or lack of recipients.",
	})
	notifierErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_notifier_errors_total",
		Help: "Delivery pipeline errors.",
	})
)

type Runner struct {
	log      *zap.Logger
	cons     *kafkax.Consumer
	mail     EmailSender
	settings alert.SettingsReader
	deliver  alert.Log
	pol      retry.Policy
}

func NewRunner(log *zap.Logger, cons *kafkax.Consumer, mail EmailSender, settings alert.SettingsReader, deliver alert.Log) *Runner {
	return &Runner{
		log:      log,
		cons:     cons,
		mail:     mail,
		settings: settings,
		deliver:  deliver,
		pol:      retry.DeliveryPolicy(log),
	}
}

// WithRetryPolicy overrides delivery retries, for tests.
func (r *Runner) WithRetryPolicy(p retry.Policy) *Runner {
	r.pol = p
	return r
}

func (r *Runner) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler[alert.Event](func(ctx context.Context, _ []byte, ev alert.Event) error {
		eventsConsumed.Inc()
		if ev.OrgID == "" || ev.Title == "" {
			obs.WithTrace(ctx, r.log).Warn("alert event missing org or title, dropping",
				zap.String("target_id", ev.TargetID))
			return nil
		}
		return r.handleEvent(ctx, ev)
	})

	if err := r.cons.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		notifierErrors.Inc()
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}

// HandleEvent resolves recipients and sends one email per address.
// Org preference off means the event is consumed and dropped; an
// empty custom list falls back to the org admins.
func (r *Runner) handleEvent(ctx context.Context, ev alert.Event) error {
	log := obs.WithTrace(ctx, r.log)

	settings, err := r.settings.OrgSettings(ctx, ev.OrgID)
	if err != nil {
		notifierErrors.Inc()
		return fmt.Errorf("org settings: %w", err)
	}
	if !settings.NotifyOnAlertTriggered {
		eventsSkipped.Inc()
		log.Debug("alerts disabled for org, dropping", zap.String("org_id", ev.OrgID))
		return nil
	}

	recipients := settings.NotificationEmails
	if len(recipients) == 0 {
		recipients, err = r.settings.AdminEmails(ctx, ev.OrgID)
		if err != nil {
			notifierErrors.Inc()
			return fmt.Errorf("admin emails: %w", err)
		}
	}
	if len(recipients) == 0 {
		eventsSkipped.Inc()
		log.Warn("no recipients for org, dropping", zap.String("org_id", ev.OrgID))
		return nil
	}

	body := fmt.Sprintf("%s\n\nFired at %s.\n\n— Vigilo",
		ev.Message, ev.FiredAt.UTC().Format(time.RFC3339))

	var delivered []string
	for _, to := range recipients {
		to := to
		err := retry.Do(ctx, func() error {
			return r.mail.Send(ctx, to, ev.Title, body)
		}, r.pol)
		if err != nil {
			notifierErrors.Inc()
			log.Error("send alert email",
				zap.String("org_id", ev.OrgID),
				zap.String("to", to),
				zap.Error(err))
			continue
		}
		emailsSent.Inc()
		delivered = append(delivered, to)
	}

	if len(delivered) == 0 {
		return fmt.Errorf("alert %q for org %s reached no recipients", ev.Title, ev.OrgID)
	}
	if err := r.deliver.RecordDelivery(ctx, ev, delivered); err != nil {
		log.Warn("record delivery", zap.Error(err))
	}
	return nil
}
