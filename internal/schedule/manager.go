// Package schedule owns the per-target timers that decide when a check
// becomes due. Execution happens elsewhere; the manager only submits
// resolved targets into a dispatcher.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/domain/target"
)

// Dispatcher accepts a due target for execution. Submit reports whether
// the target was accepted; a full queue drops the tick.
type Dispatcher interface {
	Submit(t target.Target) bool
}

var (
	scheduledGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_scheduled_targets",
		Help: "Targets currently holding a schedule entry.",
	})
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_schedule_ticks_total",
		Help: "Due-check ticks produced per target kind.",
	}, []string{"kind"})
	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_schedule_dropped_total",
		Help: "Due-check ticks rejected by a full dispatch queue.",
	}, []string{"kind"})
)

type entry struct {
	cancel context.CancelFunc
	period time.Duration
}

// Manager keeps at most one timer goroutine per target key. Scheduling
// an already-known key replaces the old timer.
type Manager struct {
	log      *zap.Logger
	registry target.Registry
	sink     Dispatcher

	mu      sync.Mutex
	baseCtx context.Context
	entries map[target.Key]*entry
	wg      sync.WaitGroup
}

func NewManager(log *zap.Logger, registry target.Registry, sink Dispatcher) *Manager {
	return &Manager{
		log:      log,
		registry: registry,
		sink:     sink,
		entries:  make(map[target.Key]*entry),
	}
}

// Start records the base context. Schedule calls before Start are
// rejected; the manager has nowhere to hang timer lifetimes.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
}

// InitializeAll schedules every enabled target from the registry.
// A failure on one listing does not block the other; partial startup
// beats no startup.
func (m *Manager) InitializeAll(ctx context.Context) error {
	var firstErr error

	eps, err := m.registry.ListEnabledEndpoints(ctx)
	if err != nil {
		m.log.Error("list enabled endpoints", zap.Error(err))
		firstErr = err
	}
	for _, ep := range eps {
		m.Schedule(ep)
	}

	dbs, err := m.registry.ListEnabledDatabases(ctx)
	if err != nil {
		m.log.Error("list enabled databases", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, db := range dbs {
		m.Schedule(db)
	}

	m.log.Info("monitoring initialized",
		zap.Int("endpoints", len(eps)),
		zap.Int("databases", len(dbs)))
	return firstErr
}

// Schedule installs a recurring timer for the target: one immediate
// submit, then one per interval. Disabled targets are ignored. An
// existing entry for the same key is cancelled first.
func (m *Manager) Schedule(t target.Target) {
	if !t.IsEnabled() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := t.Key()
	if e, ok := m.entries[key]; ok {
		e.cancel()
		delete(m.entries, key)
		scheduledGauge.Dec()
	}
	if m.baseCtx == nil {
		m.log.Warn("schedule before start", zap.String("target", key.String()))
		return
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.entries[key] = &entry{cancel: cancel, period: t.CheckInterval()}
	scheduledGauge.Inc()

	m.wg.Add(1)
	go m.run(ctx, t)

	m.log.Debug("target scheduled",
		zap.String("target", key.String()),
		zap.Duration("interval", t.CheckInterval()))
}

// Unschedule cancels the target's timer. Unknown keys are a no-op so
// callers can unschedule defensively on delete events.
func (m *Manager) Unschedule(key target.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return
	}
	e.cancel()
	delete(m.entries, key)
	scheduledGauge.Dec()
	m.log.Debug("target unscheduled", zap.String("target", key.String()))
}

// Reschedule replaces the target's entry with the target's current
// settings. Disabled targets end up unscheduled.
func (m *Manager) Reschedule(t target.Target) {
	if !t.IsEnabled() {
		m.Unschedule(t.Key())
		return
	}
	m.Schedule(t)
}

// IsScheduled reports whether the key currently holds an entry.
func (m *Manager) IsScheduled(key target.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// Keys returns a snapshot of the scheduled keys.
func (m *Manager) Keys() []target.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]target.Key, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	return out
}

// Stop cancels every entry and waits for the timer goroutines to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	for k, e := range m.entries {
		e.cancel()
		delete(m.entries, k)
		scheduledGauge.Dec()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, t target.Target) {
	defer m.wg.Done()

	m.submit(t)

	ticker := time.NewTicker(t.CheckInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.submit(t)
		}
	}
}

func (m *Manager) submit(t target.Target) {
	kind := string(t.Key().Kind)
	ticksTotal.WithLabelValues(kind).Inc()
	if !m.sink.Submit(t) {
		droppedTotal.WithLabelValues(kind).Inc()
		m.log.Warn("dispatch queue full, tick dropped",
			zap.String("target", t.Key().String()))
	}
}
