package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
	"github.com/vigilo/vigilo/internal/probe"
)

type fakeProbe struct {
	name    string
	healthy bool
	runs    atomic.Int64
	block   chan struct{}
}

func (p *fakeProbe) Name() string { return p.name }

func (p *fakeProbe) Run(ctx context.Context, t target.Target) *result.CheckResult {
	p.runs.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
		}
	}
	res := result.New(t, time.Now())
	if p.healthy {
		res.Healthy = true
		return res
	}
	return res.Fail("connection refused")
}

type memRecorder struct {
	mu   sync.Mutex
	got  []*result.CheckResult
	errs map[string]error
}

func newMemRecorder() *memRecorder { return &memRecorder{errs: map[string]error{}} }

func (r *memRecorder) Record(_ context.Context, res *result.CheckResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.errs[res.TargetID]; ok {
		return err
	}
	r.got = append(r.got, res)
	return nil
}

func (r *memRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type memNotifier struct {
	calls atomic.Int64
}

func (n *memNotifier) NotifyIfUnhealthy(context.Context, *result.CheckResult) (bool, error) {
	n.calls.Add(1)
	return true, nil
}

type memUnscheduler struct {
	mu      sync.Mutex
	removed []target.Key
}

func (u *memUnscheduler) Unschedule(key target.Key) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.removed = append(u.removed, key)
}

func (u *memUnscheduler) keys() []target.Key {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]target.Key(nil), u.removed...)
}

func endpointFor(id string) *target.Endpoint {
	return &target.Endpoint{
		ID:             id,
		OrgID:          "org-1",
		URL:            "http://example.test/" + id,
		ExpectedStatus: 200,
		Interval:       time.Minute,
		Timeout:        time.Second,
		Enabled:        true,
	}
}

func registryWith(t *testing.T, ps ...probe.Probe) *probe.Registry {
	t.Helper()
	reg := probe.NewRegistry()
	reg.MustRegister(ps...)
	return reg
}

func TestHealthyResultIsRecordedWithoutNotification(t *testing.T) {
	fp := &fakeProbe{name: "endpoint", healthy: true}
	rec := newMemRecorder()
	not := &memNotifier{}
	d := New(zap.NewNop(), registryWith(t, fp), rec, not, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	require.True(t, d.Submit(endpointFor("ep-1")))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, not.calls.Load())
	d.Stop()
}

func TestUnhealthyResultTriggersNotification(t *testing.T) {
	fp := &fakeProbe{name: "endpoint", healthy: false}
	rec := newMemRecorder()
	not := &memNotifier{}
	d := New(zap.NewNop(), registryWith(t, fp), rec, not, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	require.True(t, d.Submit(endpointFor("ep-1")))
	require.Eventually(t, func() bool { return not.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	d.Stop()
}

func TestVanishedTargetIsUnscheduledWithoutAlert(t *testing.T) {
	fp := &fakeProbe{name: "endpoint", healthy: false}
	rec := newMemRecorder()
	rec.errs["ep-gone"] = fmt.Errorf("insert health check: %w", result.ErrTargetNotFound)
	not := &memNotifier{}
	uns := &memUnscheduler{}

	d := New(zap.NewNop(), registryWith(t, fp), rec, not, 1)
	d.BindScheduler(uns)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	ep := endpointFor("ep-gone")
	require.True(t, d.Submit(ep))
	require.Eventually(t, func() bool { return len(uns.keys()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ep.Key(), uns.keys()[0])
	assert.Zero(t, not.calls.Load())
	d.Stop()
}

func TestRecordErrorDropsCycleWithoutAlert(t *testing.T) {
	fp := &fakeProbe{name: "endpoint", healthy: false}
	rec := newMemRecorder()
	rec.errs["ep-1"] = errors.New("pool exhausted")
	not := &memNotifier{}

	d := New(zap.NewNop(), registryWith(t, fp), rec, not, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	require.True(t, d.Submit(endpointFor("ep-1")))
	require.Eventually(t, func() bool { return fp.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	d.Stop()

	assert.Zero(t, rec.count())
	assert.Zero(t, not.calls.Load())
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	blocked := make(chan struct{})
	fp := &fakeProbe{name: "endpoint", healthy: true, block: blocked}
	rec := newMemRecorder()

	d := New(zap.NewNop(), registryWith(t, fp), rec, &memNotifier{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// occupy the single worker, then overfill the bounded queue
	require.True(t, d.Submit(endpointFor("blocker")))
	require.Eventually(t, func() bool { return fp.runs.Load() == 1 }, time.Second, time.Millisecond)

	accepted := 0
	for i := 0; i < 10; i++ {
		if d.Submit(endpointFor(fmt.Sprintf("ep-%d", i))) {
			accepted++
		}
	}
	assert.Equal(t, cap(d.jobs), accepted)

	close(blocked)
	d.Stop()
}

func TestUnknownProbeIsSkipped(t *testing.T) {
	rec := newMemRecorder()
	not := &memNotifier{}
	d := New(zap.NewNop(), probe.NewRegistry(), rec, not, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	require.True(t, d.Submit(endpointFor("ep-1")))
	d.Stop()
	assert.Zero(t, rec.count())
	assert.Zero(t, not.calls.Load())
}
