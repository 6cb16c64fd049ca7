package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vigilo/vigilo/internal/domain/target"
)

var _ target.Registry = (*TargetRepo)(nil)

// TargetRepo reads monitoring targets. Intervals and timeouts are
// stored in whole seconds and widened to durations on the way out.
type TargetRepo struct {
	db *DB
}

func NewTargetRepo(db *DB) *TargetRepo { return &TargetRepo{db: db} }

const (
	qListEndpoints = `
SELECT id, org_id, url, method, expected_status_code, check_interval_sec, timeout_sec, enabled
FROM endpoints
WHERE enabled = TRUE
ORDER BY id;
`

	qGetEndpoint = `
SELECT id, org_id, url, method, expected_status_code, check_interval_sec, timeout_sec, enabled
FROM endpoints
WHERE id = $1;
`

	qListDatabases = `
SELECT id, org_id, db_type, connection_url, check_interval_sec, timeout_sec, enabled
FROM database_targets
WHERE enabled = TRUE
ORDER BY id;
`

	qGetDatabase = `
SELECT id, org_id, db_type, connection_url, check_interval_sec, timeout_sec, enabled
FROM database_targets
WHERE id = $1;
`
)

func scanEndpoint(row pgx.Row, ep *target.Endpoint) error {
	var intervalSec, timeoutSec int
	if err := row.Scan(
		&ep.ID,
		&ep.OrgID,
		&ep.URL,
		&ep.Method,
		&ep.ExpectedStatus,
		&intervalSec,
		&timeoutSec,
		&ep.Enabled,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return target.ErrNotFound
		}
		return fmt.Errorf("scan endpoint: %w", err)
	}
	ep.Interval = time.Duration(intervalSec) * time.Second
	ep.Timeout = time.Duration(timeoutSec) * time.Second
	return nil
}

func scanDatabase(row pgx.Row, db *target.Database) error {
	var (
		engine                  string
		intervalSec, timeoutSec int
	)
	if err := row.Scan(
		&db.ID,
		&db.OrgID,
		&engine,
		&db.ConnectionURL,
		&intervalSec,
		&timeoutSec,
		&db.Enabled,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return target.ErrNotFound
		}
		return fmt.Errorf("scan database target: %w", err)
	}
	db.Engine = target.Engine(engine)
	db.Interval = time.Duration(intervalSec) * time.Second
	db.Timeout = time.Duration(timeoutSec) * time.Second
	return nil
}

func (r *TargetRepo) ListEnabledEndpoints(ctx context.Context) ([]*target.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qListEndpoints)
	if err != nil {
		return nil, fmt.Errorf("query endpoints: %w", err)
	}
	defer rows.Close()

	var out []*target.Endpoint
	for rows.Next() {
		var ep target.Endpoint
		if err := scanEndpoint(rows, &ep); err != nil {
			return nil, err
		}
		out = append(out, &ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *TargetRepo) ListEnabledDatabases(ctx context.Context) ([]*target.Database, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qListDatabases)
	if err != nil {
		return nil, fmt.Errorf("query database targets: %w", err)
	}
	defer rows.Close()

	var out []*target.Database
	for rows.Next() {
		var db target.Database
		if err := scanDatabase(rows, &db); err != nil {
			return nil, err
		}
		out = append(out, &db)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *TargetRepo) GetEndpoint(ctx context.Context, id string) (*target.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var ep target.Endpoint
	if err := scanEndpoint(r.db.Pool.QueryRow(ctx, qGetEndpoint, id), &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

func (r *TargetRepo) GetDatabase(ctx context.Context, id string) (*target.Database, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var db target.Database
	if err := scanDatabase(r.db.Pool.QueryRow(ctx, qGetDatabase, id), &db); err != nil {
		return nil, err
	}
	return &db, nil
}
