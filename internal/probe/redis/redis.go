// Package redis probes Redis targets: PING for liveness, then the
// INFO sections for connection, memory and keyspace metrics.
package redis

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

type Probe struct{}

func New() *Probe { return &Probe{} }

func (p *Probe) Name() string { return string(target.EngineRedis) }

func (p *Probe) Run(ctx context.Context, t target.Target) *result.CheckResult {
	tgt, ok := t.(*target.Database)
	if !ok {
		return result.New(t, time.Now()).Fail("redis probe: unsupported target type")
	}

	ctx, cancel := context.WithTimeout(ctx, tgt.Timeout)
	defer cancel()

	start := time.Now()
	res := result.New(tgt, start)
	defer func() { res.LatencyMS = time.Since(start).Milliseconds() }()

	opt, err := goredis.ParseURL(tgt.ConnectionURL)
	if err != nil {
		return res.Fail(err.Error())
	}
	opt.DialTimeout = tgt.Timeout
	opt.ReadTimeout = tgt.Timeout
	opt.WriteTimeout = tgt.Timeout
	opt.MaxRetries = 1

	client := goredis.NewClient(opt)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return res.Fail(err.Error())
	}
	res.Healthy = true

	m := &result.DBMetrics{}
	res.DB = m

	raw, err := client.Info(ctx).Result()
	if err != nil {
		return res
	}
	info := parseInfo(raw)

	if v, ok := infoInt(info, "connected_clients"); ok {
		m.ConnectionCount = &v
	}
	if v, ok := infoInt(info, "used_memory"); ok {
		m.SizeBytes = &v
	}
	if s, ok := info["instantaneous_ops_per_sec"]; ok {
		if ops, err := strconv.ParseFloat(s, 64); err == nil {
			m.QueriesPerSecond = &ops
		}
	}
	if ratio, ok := hitRatio(info); ok {
		m.CacheHitRatio = &ratio
	}
	if keys, ok := keyspaceKeys(info["db0"]); ok {
		m.TableCount = &keys
	}

	return res
}

// parseInfo flattens an INFO reply into a key/value map, skipping
// section headers and blank lines.
func parseInfo(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		out[key] = value
	}
	return out
}

func infoInt(info map[string]string, key string) (int64, bool) {
	s, ok := info[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// hitRatio computes keyspace_hits / (hits + misses) as a percentage
// rounded to two decimals.
func hitRatio(info map[string]string) (float64, bool) {
	hits, okH := infoInt(info, "keyspace_hits")
	misses, okM := infoInt(info, "keyspace_misses")
	if !okH || !okM || hits+misses == 0 {
		return 0, false
	}
	return math.Round(float64(hits)/float64(hits+misses)*10000) / 100, true
}

// keyspaceKeys pulls the key count out of a "keys=N,expires=..." line.
func keyspaceKeys(dbLine string) (int64, bool) {
	for _, part := range strings.Split(dbLine, ",") {
		if rest, found := strings.CutPrefix(part, "keys="); found {
			v, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}
