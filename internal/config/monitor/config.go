package monitor_config

import (
	"time"

	"github.com/vigilo/vigilo/internal/obs"
	pginfra "github.com/vigilo/vigilo/internal/repository/postgres"
)

type KafkaOut struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Redis struct {
	// URL is optional; empty falls back to the in-process cooldown
	// store.
	URL string `mapstructure:"url"`
}

type EngineCfg struct {
	Workers int `mapstructure:"workers"`
}

type Alerts struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type HTTPProbe struct {
	UserAgent       string `mapstructure:"user_agent"`
	FollowRedirects bool   `mapstructure:"follow_redirects"`
	VerifyTLS       bool   `mapstructure:"verify_tls"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
}

func (o OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      o.Enable,
		Endpoint:    o.OTLPEndpoint,
		ServiceName: o.ServiceName,
		SampleRatio: o.SampleRatio,
	}
}

type Config struct {
	DB        pginfra.Config `mapstructure:"db"`
	Redis     Redis          `mapstructure:"redis"`
	Kafka     KafkaOut       `mapstructure:"kafka"`
	Engine    EngineCfg      `mapstructure:"engine"`
	Alerts    Alerts         `mapstructure:"alerts"`
	HTTPProbe HTTPProbe      `mapstructure:"http_probe"`
	Server    Server         `mapstructure:"server"`
	OTEL      OTEL           `mapstructure:"otel"`
	LogLevel  string         `mapstructure:"log_level"`
}
