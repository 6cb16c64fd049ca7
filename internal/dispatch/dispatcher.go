// Package dispatch runs due checks on a bounded worker pool. The pool
// caps concurrent probe executions; the queue absorbs bursts and drops
// ticks instead of blocking the schedule timers.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
	"github.com/vigilo/vigilo/internal/probe"
)

const (
	DefaultWorkers = 20
)

// Notifier decides whether an unhealthy result becomes an alert.
type Notifier interface {
	NotifyIfUnhealthy(ctx context.Context, res *result.CheckResult) (bool, error)
}

// Unscheduler removes a target from monitoring. The dispatcher calls it
// when persistence reports the target no longer exists.
type Unscheduler interface {
	Unschedule(key target.Key)
}

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_checks_total",
		Help: "Executed checks by probe and outcome.",
	}, []string{"probe", "outcome"})
	checkLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monitor_check_duration_seconds",
		Help:    "Wall time of probe executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"probe"})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_dispatch_queue_depth",
		Help: "Due checks waiting for a worker.",
	})
	recordErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_record_errors_total",
		Help: "Failures persisting check results.",
	})
)

type Dispatcher struct {
	log      *zap.Logger
	probes   *probe.Registry
	recorder result.Recorder
	notifier Notifier

	workers int
	jobs    chan target.Target

	mu    sync.Mutex
	sched Unscheduler

	wg      sync.WaitGroup
	started bool
}

func New(log *zap.Logger, probes *probe.Registry, recorder result.Recorder, notifier Notifier, workers int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		log:      log,
		probes:   probes,
		recorder: recorder,
		notifier: notifier,
		workers:  workers,
		jobs:     make(chan target.Target, workers*2),
	}
}

// BindScheduler wires the component that can remove targets from
// monitoring. Set once before Start; without it, not-found results are
// only logged.
func (d *Dispatcher) BindScheduler(u Unscheduler) {
	d.mu.Lock()
	d.sched = u
	d.mu.Unlock()
}

func (d *Dispatcher) Start(ctx context.Context) {
	if d.started {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.log.Info("dispatcher started", zap.Int("workers", d.workers))
}

// Submit queues a target for execution without blocking. It reports
// false when the queue is full; the caller's next tick will retry.
func (d *Dispatcher) Submit(t target.Target) bool {
	select {
	case d.jobs <- t:
		queueDepth.Inc()
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight checks to finish.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-d.jobs:
			if !ok {
				return
			}
			queueDepth.Dec()
			d.execute(ctx, t)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, t target.Target) {
	tr := otel.Tracer("monitor.dispatch")
	ctx, span := tr.Start(ctx, "check.execute")
	span.SetAttributes(
		attribute.String("target.id", t.Key().ID),
		attribute.String("target.kind", string(t.Key().Kind)),
		attribute.String("probe", t.ProbeName()),
	)
	defer span.End()

	p, err := d.probes.For(t)
	if err != nil {
		span.RecordError(err)
		d.log.Error("no probe for target",
			zap.String("target", t.Key().String()),
			zap.String("probe", t.ProbeName()))
		return
	}

	start := time.Now()
	res := p.Run(ctx, t)
	checkLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	checksTotal.WithLabelValues(p.Name(), outcome(res)).Inc()

	if err := d.recorder.Record(ctx, res); err != nil {
		if errors.Is(err, result.ErrTargetNotFound) {
			d.log.Info("target vanished, removing from monitoring",
				zap.String("target", t.Key().String()))
			d.unschedule(t.Key())
			return
		}
		// An unpersisted result never alerts; the next tick retries
		// both the check and the write.
		span.RecordError(err)
		recordErrors.Inc()
		d.log.Error("record check result, dropping cycle",
			zap.String("target", t.Key().String()),
			zap.Error(err))
		return
	}

	if res.Healthy {
		return
	}
	delivered, err := d.notifier.NotifyIfUnhealthy(ctx, res)
	if err != nil {
		span.RecordError(err)
		d.log.Error("notify unhealthy target",
			zap.String("target", t.Key().String()),
			zap.Error(err))
		return
	}
	if delivered {
		d.log.Info("alert dispatched",
			zap.String("target", t.Key().String()),
			zap.Stringp("reason", res.ErrorMessage))
	}
}

func (d *Dispatcher) unschedule(key target.Key) {
	d.mu.Lock()
	u := d.sched
	d.mu.Unlock()
	if u != nil {
		u.Unschedule(key)
	}
}

func outcome(res *result.CheckResult) string {
	if res.Healthy {
		return "up"
	}
	return "down"
}
