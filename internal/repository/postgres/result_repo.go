package postgres

import (
	"context"
	"fmt"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

var _ result.Recorder = (*ResultRepo)(nil)

// ResultRepo persists check results. The insert and the last-checked
// touch share one transaction so readers never see a result without
// the matching timestamp.
type ResultRepo struct {
	db *DB
	tx Transactor
}

func NewResultRepo(db *DB, tx Transactor) *ResultRepo {
	return &ResultRepo{db: db, tx: tx}
}

const (
	qInsertHealthCheck = `
INSERT INTO health_checks (endpoint_id, org_id, checked_at, healthy, latency_ms, status_code, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`

	qTouchEndpoint = `UPDATE endpoints SET last_checked_at = $2 WHERE id = $1;`

	qInsertDatabaseMetrics = `
INSERT INTO database_metrics (
    database_target_id, org_id, checked_at, healthy, latency_ms, error_message,
    connection_count, active_connections, idle_connections,
    queries_per_second, slow_queries, cache_hit_ratio, size_bytes, table_count
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
`

	qTouchDatabase = `UPDATE database_targets SET last_checked_at = $2 WHERE id = $1;`
)

func (r *ResultRepo) Record(ctx context.Context, res *result.CheckResult) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		eq := r.db.execQueryer(ctx)
		switch res.Kind {
		case target.KindEndpoint:
			if _, err := eq.Exec(ctx, qInsertHealthCheck,
				res.TargetID, res.OrgID, res.CheckedAt, res.Healthy,
				res.LatencyMS, res.StatusCode, res.ErrorMessage,
			); err != nil {
				return fmt.Errorf("insert health check: %w", err)
			}
			if _, err := eq.Exec(ctx, qTouchEndpoint, res.TargetID, res.CheckedAt); err != nil {
				return fmt.Errorf("touch endpoint: %w", err)
			}
			return nil
		case target.KindDatabase:
			m := res.DB
			if m == nil {
				m = &result.DBMetrics{}
			}
			if _, err := eq.Exec(ctx, qInsertDatabaseMetrics,
				res.TargetID, res.OrgID, res.CheckedAt, res.Healthy,
				res.LatencyMS, res.ErrorMessage,
				m.ConnectionCount, m.ActiveConnections, m.IdleConnections,
				m.QueriesPerSecond, m.SlowQueries, m.CacheHitRatio,
				m.SizeBytes, m.TableCount,
			); err != nil {
				return fmt.Errorf("insert database metrics: %w", err)
			}
			if _, err := eq.Exec(ctx, qTouchDatabase, res.TargetID, res.CheckedAt); err != nil {
				return fmt.Errorf("touch database target: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("unknown target kind %q", res.Kind)
		}
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("record result for %s: %w", res.TargetID, result.ErrTargetNotFound)
		}
		return err
	}
	return nil
}
