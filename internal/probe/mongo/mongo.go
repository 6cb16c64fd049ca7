// Package mongo probes MongoDB targets: ping for liveness, then
// best-effort serverStatus and dbStats.
package mongo

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

type Probe struct{}

func New() *Probe { return &Probe{} }

func (p *Probe) Name() string { return string(target.EngineMongoDB) }

type serverStatus struct {
	Connections struct {
		Current int64 `bson:"current"`
		Active  int64 `bson:"active"`
	} `bson:"connections"`
	Opcounters struct {
		Query int64 `bson:"query"`
	} `bson:"opcounters"`
	UptimeSeconds float64 `bson:"uptime"`
}

type dbStats struct {
	DataSize    float64 `bson:"dataSize"`
	Collections int64   `bson:"collections"`
}

func (p *Probe) Run(ctx context.Context, t target.Target) *result.CheckResult {
	tgt, ok := t.(*target.Database)
	if !ok {
		return result.New(t, time.Now()).Fail("mongodb probe: unsupported target type")
	}

	ctx, cancel := context.WithTimeout(ctx, tgt.Timeout)
	defer cancel()

	start := time.Now()
	res := result.New(tgt, start)
	defer func() { res.LatencyMS = time.Since(start).Milliseconds() }()

	opts := options.Client().
		ApplyURI(tgt.ConnectionURL).
		SetConnectTimeout(tgt.Timeout).
		SetServerSelectionTimeout(tgt.Timeout)

	client, err := mongodrv.Connect(ctx, opts)
	if err != nil {
		return res.Fail(err.Error())
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return res.Fail(err.Error())
	}
	res.Healthy = true

	m := &result.DBMetrics{}
	res.DB = m

	var st serverStatus
	if err := client.Database("admin").
		RunCommand(ctx, bson.D{{Key: "serverStatus", Value: 1}}).
		Decode(&st); err == nil {
		current := st.Connections.Current
		active := st.Connections.Active
		idle := current - active
		m.ConnectionCount = &current
		m.ActiveConnections = &active
		m.IdleConnections = &idle
		if st.UptimeSeconds > 0 {
			qps := float64(st.Opcounters.Query) / st.UptimeSeconds
			m.QueriesPerSecond = &qps
		}
	}

	var stats dbStats
	if err := client.Database(databaseName(tgt.ConnectionURL)).
		RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).
		Decode(&stats); err == nil {
		size := int64(stats.DataSize)
		m.SizeBytes = &size
		m.TableCount = &stats.Collections
	}

	return res
}

// databaseName extracts the database from a mongodb:// URI path,
// falling back to admin when none is given.
func databaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "admin"
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "admin"
	}
	return name
}
