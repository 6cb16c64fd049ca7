// Package alerting turns unhealthy check results into deduplicated
// alert events. One alert per (org, title) per cooldown window.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/domain/alert"
	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

const DefaultCooldown = 15 * time.Minute

var (
	alertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_alerts_sent_total",
		Help: "Alert events enqueued for delivery.",
	}, []string{"title"})
	alertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_alerts_suppressed_total",
		Help: "Alerts suppressed by an active cooldown window.",
	}, []string{"title"})
	alertErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_alert_errors_total",
		Help: "Failures enqueueing alert events.",
	})
)

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Notifier struct {
	log      *zap.Logger
	delivery alert.Delivery
	cooldown alert.Cooldown
	window   time.Duration
	clock    alert.Clock
}

func NewNotifier(log *zap.Logger, delivery alert.Delivery, cooldown alert.Cooldown, window time.Duration) *Notifier {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Notifier{
		log:      log,
		delivery: delivery,
		cooldown: cooldown,
		window:   window,
		clock:    realClock{},
	}
}

// WithClock replaces time source, for tests.
func (n *Notifier) WithClock(c alert.Clock) *Notifier {
	n.clock = c
	return n
}

// NotifyIfUnhealthy enqueues an alert for an unhealthy result unless
// the (org, title) pair is inside its cooldown window. The cooldown is
// acquired before enqueueing, so concurrent failures for the same org
// produce one event. A broken cooldown store fails open: better a
// duplicate page than a silent outage.
func (n *Notifier) NotifyIfUnhealthy(ctx context.Context, res *result.CheckResult) (bool, error) {
	if res.Healthy {
		return false, nil
	}

	ev := eventFor(res, n.clock.Now())

	ok, err := n.cooldown.Acquire(ctx, ev.OrgID, ev.Title, n.window)
	if err != nil {
		n.log.Warn("cooldown store unavailable, alerting anyway",
			zap.String("org_id", ev.OrgID),
			zap.String("title", ev.Title),
			zap.Error(err))
		ok = true
	}
	if !ok {
		alertsSuppressed.WithLabelValues(ev.Title).Inc()
		return false, nil
	}

	if err := n.delivery.Enqueue(ctx, ev); err != nil {
		alertErrors.Inc()
		return false, fmt.Errorf("enqueue alert event: %w", err)
	}
	alertsSent.WithLabelValues(ev.Title).Inc()
	return true, nil
}

func eventFor(res *result.CheckResult, at time.Time) alert.Event {
	title := alert.TitleEndpointDown
	message := fmt.Sprintf("Endpoint %s is not responding.", res.TargetLabel)
	if res.Kind == target.KindDatabase {
		title = alert.TitleDatabaseUnreachable
		message = fmt.Sprintf("Database %s is not responding.", res.TargetLabel)
	}
	if res.ErrorMessage != nil && *res.ErrorMessage != "" {
		message += " " + *res.ErrorMessage
	}
	return alert.Event{
		OrgID:    res.OrgID,
		TargetID: res.TargetID,
		Kind:     res.Kind,
		Title:    title,
		Message:  message,
		FiredAt:  at.UTC(),
	}
}
