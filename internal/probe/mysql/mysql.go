// Package mysql probes MySQL targets through database/sql with the
// go-sql-driver: SELECT 1 liveness, then SHOW STATUS counters.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

const (
	qSize = `
SELECT COALESCE(SUM(data_length + index_length), 0)
FROM information_schema.tables
WHERE table_schema = DATABASE();`

	qTableCount = `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = DATABASE();`
)

type Probe struct{}

func New() *Probe { return &Probe{} }

func (p *Probe) Name() string { return string(target.EngineMySQL) }

func (p *Probe) Run(ctx context.Context, t target.Target) *result.CheckResult {
	tgt, ok := t.(*target.Database)
	if !ok {
		return result.New(t, time.Now()).Fail("mysql probe: unsupported target type")
	}

	ctx, cancel := context.WithTimeout(ctx, tgt.Timeout)
	defer cancel()

	start := time.Now()
	res := result.New(tgt, start)
	defer func() { res.LatencyMS = time.Since(start).Milliseconds() }()

	cfg, err := mysqldrv.ParseDSN(normalizeDSN(tgt.ConnectionURL))
	if err != nil {
		return res.Fail(err.Error())
	}
	cfg.Timeout = tgt.Timeout
	cfg.ReadTimeout = tgt.Timeout
	cfg.WriteTimeout = tgt.Timeout

	db, err := sql.Open("mysql", cfg.FormatDSN())
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

	if v, err := statusVar(ctx, db, "Threads_connected"); err == nil {
		m.ConnectionCount = &v
	}
	if v, err := statusVar(ctx, db, "Slow_queries"); err == nil {
		m.SlowQueries = &v
	}
	if questions, err := statusVar(ctx, db, "Questions"); err == nil {
		if uptime, err := statusVar(ctx, db, "Uptime"); err == nil && uptime > 0 {
			qps := math.Round(float64(questions)/float64(uptime)*100) / 100
			m.QueriesPerSecond = &qps
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

	return res
}

// normalizeDSN rewrites a mysql:// connection URL into the driver's
// DSN form, user:pass@tcp(host:port)/dbname. Strings already in DSN
// form pass through untouched.
func normalizeDSN(raw string) string {
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "3306")
	}

	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			b.WriteString(":")
			b.WriteString(pass)
		}
		b.WriteString("@")
	}
	fmt.Fprintf(&b, "tcp(%s)/%s", host, strings.TrimPrefix(u.Path, "/"))
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// statusVar reads one numeric counter from SHOW GLOBAL STATUS.
func statusVar(ctx context.Context, db *sql.DB, name string) (int64, error) {
	var key, value string
	if err := db.QueryRowContext(ctx, "SHOW GLOBAL STATUS LIKE ?", name).Scan(&key, &value); err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}
