// Package engine composes the schedule manager and the dispatch pool
// into the monitoring engine, and exposes the lifecycle hooks the rest
// of the platform calls when targets change.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/dispatch"
	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
	"github.com/vigilo/vigilo/internal/probe"
	"github.com/vigilo/vigilo/internal/schedule"
)

type Config struct {
	Workers int `mapstructure:"workers"`
}

type Engine struct {
	log        *zap.Logger
	registry   target.Registry
	manager    *schedule.Manager
	dispatcher *dispatch.Dispatcher
}

func New(log *zap.Logger, registry target.Registry, probes *probe.Registry, recorder result.Recorder, notifier dispatch.Notifier, cfg Config) *Engine {
	d := dispatch.New(log, probes, recorder, notifier, cfg.Workers)
	m := schedule.NewManager(log, registry, d)
	d.BindScheduler(m)
	return &Engine{
		log:        log,
		registry:   registry,
		manager:    m,
		dispatcher: d,
	}
}

// Start brings up workers and timers; InitializeAll is separate so
// callers can decide whether a cold registry blocks startup.
func (e *Engine) Start(ctx context.Context) {
	e.dispatcher.Start(ctx)
	e.manager.Start(ctx)
}

func (e *Engine) InitializeAll(ctx context.Context) error {
	return e.manager.InitializeAll(ctx)
}

// Stop drains timers first so no new jobs land on a closing queue.
func (e *Engine) Stop() {
	e.manager.Stop()
	e.dispatcher.Stop()
}

// OnTargetCreated resolves a freshly created target and schedules it.
// A target already deleted again by the time we look is not an error.
func (e *Engine) OnTargetCreated(ctx context.Context, kind target.Kind, id string) error {
	t, err := e.resolve(ctx, kind, id)
	if err != nil {
		if errors.Is(err, target.ErrNotFound) {
			return nil
		}
		return err
	}
	e.manager.Schedule(t)
	return nil
}

// OnTargetUpdated re-reads the target and replaces its schedule entry,
// so interval, timeout and enabled changes take effect on the next run.
func (e *Engine) OnTargetUpdated(ctx context.Context, kind target.Kind, id string) error {
	key := target.Key{Kind: kind, ID: id}
	t, err := e.resolve(ctx, kind, id)
	if err != nil {
		if errors.Is(err, target.ErrNotFound) {
			e.manager.Unschedule(key)
			return nil
		}
		return err
	}
	e.manager.Reschedule(t)
	return nil
}

func (e *Engine) OnTargetDeleted(_ context.Context, kind target.Kind, id string) {
	e.manager.Unschedule(target.Key{Kind: kind, ID: id})
}

func (e *Engine) IsScheduled(key target.Key) bool { return e.manager.IsScheduled(key) }

func (e *Engine) resolve(ctx context.Context, kind target.Kind, id string) (target.Target, error) {
	switch kind {
	case target.KindEndpoint:
		ep, err := e.registry.GetEndpoint(ctx, id)
		if err != nil {
			return nil, err
		}
		return ep, nil
	case target.KindDatabase:
		db, err := e.registry.GetDatabase(ctx, id)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}
}
