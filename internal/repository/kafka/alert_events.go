package kafka

import (
	"context"

	"github.com/vigilo/vigilo/internal/domain/alert"
)

// AlertEventsKafka publishes alert events keyed by org, so one org's
// alerts stay ordered on a single partition.
type AlertEventsKafka struct {
	p *Producer
}

var _ alert.Delivery = (*AlertEventsKafka)(nil)

func NewAlertEventsKafka(p *Producer) *AlertEventsKafka { return &AlertEventsKafka{p: p} }

func (e *AlertEventsKafka) Enqueue(ctx context.Context, ev alert.Event) error {
	return e.p.PublishJSON(ctx, []byte(ev.OrgID), ev)
}
