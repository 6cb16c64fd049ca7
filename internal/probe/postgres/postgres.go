// Package postgres probes PostgreSQL targets over a short-lived pgx
// connection: SELECT 1 for liveness, then best-effort server stats.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

const (
	qConnStats = `
SELECT count(*)::bigint AS total,
       count(*) FILTER (WHERE state = 'active')::bigint AS active,
       count(*) FILTER (WHERE state = 'idle')::bigint AS idle
FROM pg_stat_activity
WHERE datname = current_database();`

	qCacheHitRatio = `
SELECT CASE WHEN blks_hit + blks_read > 0
            THEN round((blks_hit::numeric / (blks_hit + blks_read)) * 100, 2)
            ELSE 100
       END::float8
FROM pg_stat_database
WHERE datname = current_database();`

	qSize = `SELECT pg_database_size(current_database());`

	qTableCount = `
SELECT count(*)::bigint
FROM information_schema.tables
WHERE table_schema = 'public';`
)

type Probe struct{}

func New() *Probe { return &Probe{} }

func (p *Probe) Name() string { return string(target.EnginePostgres) }

func (p *Probe) Run(ctx context.Context, t target.Target) *result.CheckResult {
	db, ok := t.(*target.Database)
	if !ok {
		return result.New(t, time.Now()).Fail("postgres probe: unsupported target type")
	}

	ctx, cancel := context.WithTimeout(ctx, db.Timeout)
	defer cancel()

	start := time.Now()
	res := result.New(db, start)
	defer func() { res.LatencyMS = time.Since(start).Milliseconds() }()

	conn, err := pgx.Connect(ctx, db.ConnectionURL)
	if err != nil {
		return res.Fail(err.Error())
	}
	// Close with a fresh context so the connection is released even
	// when the probe deadline has already expired.
	defer func() {
		cctx, ccancel := context.WithTimeout(context.Background(), time.Second)
		defer ccancel()
		_ = conn.Close(cctx)
	}()

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return res.Fail(err.Error())
	}
	res.Healthy = true

	// Secondary metrics are best-effort: each failure degrades its
	// field to nil and never downgrades the liveness verdict.
	m := &result.DBMetrics{}
	res.DB = m

	var total, active, idle int64
	if err := conn.QueryRow(ctx, qConnStats).Scan(&total, &active, &idle); err == nil {
		m.ConnectionCount = &total
		m.ActiveConnections = &active
		m.IdleConnections = &idle
	}

	var ratio float64
	if err := conn.QueryRow(ctx, qCacheHitRatio).Scan(&ratio); err == nil {
		m.CacheHitRatio = &ratio
	}

	var size int64
	if err := conn.QueryRow(ctx, qSize).Scan(&size); err == nil {
		m.SizeBytes = &size
	}

	var tables int64
	if err := conn.QueryRow(ctx, qTableCount).Scan(&tables); err == nil {
		m.TableCount = &tables
	}

	return res
}
