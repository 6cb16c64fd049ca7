package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/domain/target"
)

type captureSink struct {
	mu     sync.Mutex
	seen   []target.Key
	accept bool
}

func newCaptureSink() *captureSink { return &captureSink{accept: true} }

func (s *captureSink) Submit(t target.Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept {
		return false
	}
	s.seen = append(s.seen, t.Key())
	return true
}

func (s *captureSink) count(key target.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.seen {
		if k == key {
			n++
		}
	}
	return n
}

type stubRegistry struct {
	endpoints []*target.Endpoint
	databases []*target.Database
	epErr     error
	dbErr     error
}

func (r *stubRegistry) ListEnabledEndpoints(context.Context) ([]*target.Endpoint, error) {
	return r.endpoints, r.epErr
}
func (r *stubRegistry) ListEnabledDatabases(context.Context) ([]*target.Database, error) {
	return r.databases, r.dbErr
}
func (r *stubRegistry) GetEndpoint(context.Context, string) (*target.Endpoint, error) {
	return nil, errors.New("not implemented")
}
func (r *stubRegistry) GetDatabase(context.Context, string) (*target.Database, error) {
	return nil, errors.New("not implemented")
}

func testEndpoint(id string, interval time.Duration) *target.Endpoint {
	return &target.Endpoint{
		ID:             id,
		OrgID:          "org-1",
		URL:            "http://example.test",
		Method:         "GET",
		ExpectedStatus: 200,
		Interval:       interval,
		Timeout:        time.Second,
		Enabled:        true,
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleFiresImmediatelyThenRepeats(t *testing.T) {
	sink := newCaptureSink()
	m := NewManager(zap.NewNop(), &stubRegistry{}, sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	ep := testEndpoint("ep-1", 30*time.Millisecond)
	m.Schedule(ep)

	eventually(t, func() bool { return sink.count(ep.Key()) >= 3 })
	assert.True(t, m.IsScheduled(ep.Key()))
}

func TestScheduleSkipsDisabledTarget(t *testing.T) {
	sink := newCaptureSink()
	m := NewManager(zap.NewNop(), &stubRegistry{}, sink)
	m.Start(context.Background())
	defer m.Stop()

	ep := testEndpoint("ep-1", 10*time.Millisecond)
	ep.Enabled = false
	m.Schedule(ep)

	assert.False(t, m.IsScheduled(ep.Key()))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, sink.count(ep.Key()))
}

func TestScheduleReplacesExistingEntry(t *testing.T) {
	sink := newCaptureSink()
	m := NewManager(zap.NewNop(), &stubRegistry{}, sink)
	m.Start(context.Background())
	defer m.Stop()

	ep := testEndpoint("ep-1", time.Hour)
	m.Schedule(ep)
	m.Schedule(ep)

	assert.True(t, m.IsScheduled(ep.Key()))
	assert.Len(t, m.Keys(), 1)
	// one immediate fire per Schedule call
	eventually(t, func() bool { return sink.count(ep.Key()) == 2 })
}

func TestUnscheduleStopsTimerAndToleratesUnknownKey(t *testing.T) {
	sink := newCaptureSink()
	m := NewManager(zap.NewNop(), &stubRegistry{}, sink)
	m.Start(context.Background())
	defer m.Stop()

	ep := testEndpoint("ep-1", 20*time.Millisecond)
	m.Schedule(ep)
	eventually(t, func() bool { return sink.count(ep.Key()) >= 1 })

	m.Unschedule(ep.Key())
	assert.False(t, m.IsScheduled(ep.Key()))

	n := sink.count(ep.Key())
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, n, sink.count(ep.Key()))

	m.Unschedule(target.Key{Kind: target.KindEndpoint, ID: "missing"})
}

func TestRescheduleDisabledTargetUnschedules(t *testing.T) {
	sink := newCaptureSink()
	m := NewManager(zap.NewNop(), &stubRegistry{}, sink)
	m.Start(context.Background())
	defer m.Stop()

	ep := testEndpoint("ep-1", time.Hour)
	m.Schedule(ep)
	require.True(t, m.IsScheduled(ep.Key()))

	off := *ep
	off.Enabled = false
	m.Reschedule(&off)
	assert.False(t, m.IsScheduled(ep.Key()))
}

func TestInitializeAllContinuesPastListingErrors(t *testing.T) {
	sink := newCaptureSink()
	db := &target.Database{
		ID:            "db-1",
		OrgID:         "org-1",
		Engine:        target.EnginePostgres,
		ConnectionURL: "postgres://localhost/app",
		Interval:      time.Hour,
		Timeout:       time.Second,
		Enabled:       true,
	}
	reg := &stubRegistry{
		epErr:     errors.New("endpoints listing down"),
		databases: []*target.Database{db},
	}
	m := NewManager(zap.NewNop(), reg, sink)
	m.Start(context.Background())
	defer m.Stop()

	err := m.InitializeAll(context.Background())
	assert.Error(t, err)
	assert.True(t, m.IsScheduled(db.Key()))
}

func TestScheduleBeforeStartIsRejected(t *testing.T) {
	sink := newCaptureSink()
	m := NewManager(zap.NewNop(), &stubRegistry{}, sink)

	ep := testEndpoint("ep-1", time.Hour)
	m.Schedule(ep)
	assert.False(t, m.IsScheduled(ep.Key()))
}
