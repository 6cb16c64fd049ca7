package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/domain/alert"
	"github.com/vigilo/vigilo/internal/domain/target"
	"github.com/vigilo/vigilo/internal/obs/retry"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[to]; ok {
		return err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (s *fakeSender) all() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMail(nil), s.sent...)
}

type fakeSettings struct {
	settings *alert.OrgSettings
	admins   []string
	err      error
}

func (f *fakeSettings) OrgSettings(context.Context, string) (*alert.OrgSettings, error) {
	return f.settings, f.err
}
func (f *fakeSettings) AdminEmails(context.Context, string) ([]string, error) {
	return f.admins, nil
}

type fakeLog struct {
	mu         sync.Mutex
	recipients [][]string
}

func (f *fakeLog) RecordDelivery(_ context.Context, _ alert.Event, rcpts []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipients = append(f.recipients, rcpts)
	return nil
}

func sampleEvent() alert.Event {
	return alert.Event{
		OrgID:    "org-1",
		TargetID: "ep-1",
		Kind:     target.KindEndpoint,
		Title:    alert.TitleEndpointDown,
		Message:  "Endpoint https://api.example.com is not responding. expected status 200, got 503",
		FiredAt:  time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}
}

func newRunner(sender *fakeSender, settings *fakeSettings, log *fakeLog) *Runner {
	r := NewRunner(zap.NewNop(), nil, sender, settings, log)
	return r.WithRetryPolicy(retry.Policy{Attempts: 1})
}

func TestHandleEventSendsToCustomRecipients(t *testing.T) {
	sender := &fakeSender{}
	settings := &fakeSettings{settings: &alert.OrgSettings{
		OrgID:                  "org-1",
		NotifyOnAlertTriggered: true,
		NotificationEmails:     []string{"oncall@example.com", "ops@example.com"},
	}}
	dlog := &fakeLog{}

	err := newRunner(sender, settings, dlog).handleEvent(context.Background(), sampleEvent())
	require.NoError(t, err)

	sent := sender.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "oncall@example.com", sent[0].to)
	assert.Equal(t, alert.TitleEndpointDown, sent[0].subject)
	assert.Contains(t, sent[0].body, "expected status 200, got 503")

	require.Len(t, dlog.recipients, 1)
	assert.Equal(t, []string{"oncall@example.com", "ops@example.com"}, dlog.recipients[0])
}

func TestHandleEventFallsBackToAdmins(t *testing.T) {
	sender := &fakeSender{}
	settings := &fakeSettings{
		settings: &alert.OrgSettings{OrgID: "org-1", NotifyOnAlertTriggered: true},
		admins:   []string{"admin@example.com"},
	}

	err := newRunner(sender, settings, &fakeLog{}).handleEvent(context.Background(), sampleEvent())
	require.NoError(t, err)
	require.Len(t, sender.all(), 1)
	assert.Equal(t, "admin@example.com", sender.all()[0].to)
}

func TestHandleEventHonorsOrgOptOut(t *testing.T) {
	sender := &fakeSender{}
	settings := &fakeSettings{settings: &alert.OrgSettings{
		OrgID:              "org-1",
		NotificationEmails: []string{"oncall@example.com"},
	}}

	err := newRunner(sender, settings, &fakeLog{}).handleEvent(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Empty(t, sender.all())
}

func TestHandleEventPartialDeliverySucceeds(t *testing.T) {
	sender := &fakeSender{fail: map[string]error{"broken@example.com": errors.New("mailbox full")}}
	settings := &fakeSettings{settings: &alert.OrgSettings{
		OrgID:                  "org-1",
		NotifyOnAlertTriggered: true,
		NotificationEmails:     []string{"broken@example.com", "oncall@example.com"},
	}}
	dlog := &fakeLog{}

	err := newRunner(sender, settings, dlog).handleEvent(context.Background(), sampleEvent())
	require.NoError(t, err)
	require.Len(t, dlog.recipients, 1)
	assert.Equal(t, []string{"oncall@example.com"}, dlog.recipients[0])
}

func TestHandleEventAllDeliveriesFailing(t *testing.T) {
	sender := &fakeSender{fail: map[string]error{"broken@example.com": errors.New("mailbox full")}}
	settings := &fakeSettings{settings: &alert.OrgSettings{
		OrgID:                  "org-1",
		NotifyOnAlertTriggered: true,
		NotificationEmails:     []string{"broken@example.com"},
	}}

	err := newRunner(sender, settings, &fakeLog{}).handleEvent(context.Background(), sampleEvent())
	assert.Error(t, err)
}

func TestHandleEventSettingsLookupFailure(t *testing.T) {
	sender := &fakeSender{}
	settings := &fakeSettings{err: errors.New("db down")}

	err := newRunner(sender, settings, &fakeLog{}).handleEvent(context.Background(), sampleEvent())
	assert.Error(t, err)
	assert.Empty(t, sender.all())
}
