package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vigilo/vigilo/internal/alerting"
	config "github.com/vigilo/vigilo/internal/config/monitor"
	"github.com/vigilo/vigilo/internal/domain/alert"
	"github.com/vigilo/vigilo/internal/engine"
	"github.com/vigilo/vigilo/internal/obs"
	"github.com/vigilo/vigilo/internal/probe"
	"github.com/vigilo/vigilo/internal/probe/httpprobe"
	mongoprobe "github.com/vigilo/vigilo/internal/probe/mongo"
	mssqlprobe "github.com/vigilo/vigilo/internal/probe/mssql"
	mysqlprobe "github.com/vigilo/vigilo/internal/probe/mysql"
	pgprobe "github.com/vigilo/vigilo/internal/probe/postgres"
	redisprobe "github.com/vigilo/vigilo/internal/probe/redis"
	kafkax "github.com/vigilo/vigilo/internal/repository/kafka"
	pg "github.com/vigilo/vigilo/internal/repository/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "", "path to config yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, App: "monitor"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	zap.ReplaceGlobals(l)

	l.Info("starting monitor",
		zap.Int("workers", cfg.Engine.Workers),
		zap.Duration("alert_cooldown", cfg.Alerts.Cooldown),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	producer := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(l)
	defer func() { _ = producer.Close() }()
	_ = kafkax.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkax.TopicSpec{Name: cfg.Kafka.Topic}, l)

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	probes := probe.NewRegistry()
	probes.MustRegister(
		httpprobe.New(httpprobe.Config{
			UserAgent:       cfg.HTTPProbe.UserAgent,
			FollowRedirects: cfg.HTTPProbe.FollowRedirects,
			VerifyTLS:       cfg.HTTPProbe.VerifyTLS,
		}),
		pgprobe.New(),
		mysqlprobe.New(),
		mongoprobe.New(),
		redisprobe.New(),
		mssqlprobe.New(),
	)
	l.Info("probes registered", zap.Strings("probes", probes.Names()))

	registry := pg.NewTargetRepo(db)
	recorder := pg.NewResultRepo(db, pg.NewTransactor(db, l))
	notifier := alerting.NewNotifier(l,
		kafkax.NewAlertEventsKafka(producer),
		cooldownStore(ctx, cfg.Redis.URL, l),
		cfg.Alerts.Cooldown)

	eng := engine.New(l, registry, probes, recorder, notifier, engine.Config{Workers: cfg.Engine.Workers})
	eng.Start(ctx)
	if err := eng.InitializeAll(ctx); err != nil {
		l.Warn("partial monitoring init", zap.Error(err))
	}
	l.Info("monitor started")

	<-ctx.Done()
	l.Info("shutdown signal")

	eng.Stop()
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}

// cooldownStore prefers the shared Redis window and degrades to the
// in-process one when Redis is absent or unreachable.
func cooldownStore(ctx context.Context, url string, l *zap.Logger) alert.Cooldown {
	if url == "" {
		return alerting.NewMemoryCooldown()
	}
	opt, err := goredis.ParseURL(url)
	if err != nil {
		l.Warn("redis url invalid, using in-memory cooldown", zap.Error(err))
		return alerting.NewMemoryCooldown()
	}
	client := goredis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		l.Warn("redis unreachable, using in-memory cooldown", zap.Error(err))
		_ = client.Close()
		return alerting.NewMemoryCooldown()
	}
	l.Info("redis cooldown store connected")
	return alerting.NewRedisCooldown(client)
}
