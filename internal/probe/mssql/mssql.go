// Package mssql probes Microsoft SQL Server targets through
// database/sql with the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

const (
	qConnStats = `
SELECT COUNT(*) AS total,
       SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END) AS active,
       SUM(CASE WHEN status = 'sleeping' THEN 1 ELSE 0 END) AS idle
FROM sys.dm_exec_sessions
WHERE is_user_process = 1;`

	qSize = `SELECT SUM(CAST(size AS bigint) * 8 * 1024) FROM sys.database_files;`

	qTableCount = `SELECT COUNT(*) FROM sys.tables WHERE type = 'U';`

	qCacheHitRatio = `
SELECT CASE WHEN (a.cntr_value + b.cntr_value) > 0
            THEN CAST(a.cntr_value * 100.0 / (a.cntr_value + b.cntr_value) AS DECIMAL(5,2))
            ELSE 100
       END
FROM sys.dm_os_performance_counters a
JOIN sys.dm_os_performance_counters b ON a.object_name = b.object_name
WHERE a.counter_name = 'Buffer cache hit ratio'
  AND b.counter_name = 'Buffer cache hit ratio base'
  AND a.object_name LIKE '%Buffer Manager%';`
)

type Probe struct{}

func New() *Probe { return &Probe{} }

func (p *Probe) Name() string { return string(target.EngineMSSQL) }

func (p *Probe) Run(ctx context.Context, t target.Target) *result.CheckResult {
	tgt, ok := t.(*target.Database)
	if !ok {
		return result.New(t, time.Now()).Fail("mssql probe: unsupported target type")
	}

	ctx, cancel := context.WithTimeout(ctx, tgt.Timeout)
	defer cancel()

	start := time.Now()
	res := result.New(tgt, start)
	defer func() { res.LatencyMS = time.Since(start).Milliseconds() }()

	db, err := sql.Open("sqlserver", normalizeDSN(tgt.ConnectionURL))
	if err != nil {
		return res.Fail(err.Error())
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return res.Fail(err.Error())
	}
	res.Healthy = true

	m := &result.DBMetrics{}
	res.DB = m

	var total, active, idle sql.NullInt64
	if err := db.QueryRowContext(ctx, qConnStats).Scan(&total, &active, &idle); err == nil && total.Valid {
		m.ConnectionCount = &total.Int64
		if active.Valid {
			m.ActiveConnections = &active.Int64
		}
		if idle.Valid {
			m.IdleConnections = &idle.Int64
		}
	}

	var size sql.NullInt64
	if err := db.QueryRowContext(ctx, qSize).Scan(&size); err == nil && size.Valid {
		m.SizeBytes = &size.Int64
	}

	var tables int64
	if err := db.QueryRowContext(ctx, qTableCount).Scan(&tables); err == nil {
		m.TableCount = &tables
	}

	var ratio sql.NullFloat64
	if err := db.QueryRowContext(ctx, qCacheHitRatio).Scan(&ratio); err == nil && ratio.Valid {
		m.CacheHitRatio = &ratio.Float64
	}

	return res
}

// normalizeDSN maps the mssql:// scheme some dashboards emit onto the
// sqlserver:// scheme the driver accepts. ADO-style connection strings
// pass through untouched.
func normalizeDSN(dsn string) string {
	if rest, found := strings.CutPrefix(dsn, "mssql://"); found {
		return "sqlserver://" + rest
	}
	return dsn
}
