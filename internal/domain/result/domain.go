package result

import (
	"time"

	"github.com/vigilo/vigilo/internal/domain/target"
)

// CheckResult is the immutable outcome of one probe execution.
// Probe-level failures (timeout, refused connection, status mismatch)
// live in ErrorMessage; a probe never returns an error for them.
type CheckResult struct {
	TargetID     string      `json:"target_id"`
	OrgID        string      `json:"org_id"`
	Kind         target.Kind `json:"kind"`
	TargetLabel  string      `json:"target_label"`
	CheckedAt    time.Time   `json:"checked_at"`
	Healthy      bool        `json:"healthy"`
	LatencyMS    int64       `json:"latency_ms"`
	StatusCode   *int        `json:"status_code,omitempty"`
	ErrorMessage *string     `json:"error_message,omitempty"`
	DB           *DBMetrics  `json:"db,omitempty"`
}

// DBMetrics holds best-effort secondary measurements. Every field is
// optional: a failing stat query degrades its field to nil without
// affecting the health flag.
type DBMetrics struct {
	ConnectionCount   *int64   `json:"connection_count,omitempty"`
	ActiveConnections *int64   `json:"active_connections,omitempty"`
	IdleConnections   *int64   `json:"idle_connections,omitempty"`
	QueriesPerSecond  *float64 `json:"queries_per_second,omitempty"`
	SlowQueries       *int64   `json:"slow_queries,omitempty"`
	CacheHitRatio     *float64 `json:"cache_hit_ratio,omitempty"`
	SizeBytes         *int64   `json:"db_size_bytes,omitempty"`
	TableCount        *int64   `json:"table_count,omitempty"`
}

// New seeds a result for the given target with the check start time.
func New(t target.Target, at time.Time) *CheckResult {
	return &CheckResult{
		TargetID:    t.Key().ID,
		OrgID:       t.Org(),
		Kind:        t.Key().Kind,
		TargetLabel: t.Label(),
		CheckedAt:   at.UTC(),
	}
}

// Fail marks the result unhealthy with a human-readable message.
func (r *CheckResult) Fail(msg string) *CheckResult {
	r.Healthy = false
	r.ErrorMessage = &msg
	return r
}
