// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Event backends accepted by events.backend.
const (
	EventsBackendLog    = "log"
	EventsBackendMemory = "memory"
	EventsBackendPubSub = "pubsub"
	EventsBackendKafka  = "kafka"
)

// Store backends accepted by db.backend.
const (
	DBBackendPostgres = "postgres"
	DBBackendMemory   = "memory"
)

// Span exporters accepted by telemetry.exporter.
const (
	TelemetryExporterNone   = "none"
	TelemetryExporterStdout = "stdout"
	TelemetryExporterOTLP   = "otlp"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Events    EventsConfig    `mapstructure:"events"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	// Backend selects the article store; memory keeps rows in process and needs no DSN.
	Backend         string        `mapstructure:"backend"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// WorkerConfig sizes the command worker pool.
type WorkerConfig struct {
	Count      int `mapstructure:"count"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// EventsConfig selects where article-published notifications go.
type EventsConfig struct {
	Backend       string   `mapstructure:"backend"`
	Topic         string   `mapstructure:"topic"`
	PubSubProject string   `mapstructure:"pubsub_project"`
	KafkaBrokers  []string `mapstructure:"kafka_brokers"`
	// PublishTimeout bounds a single event delivery so a slow broker cannot hold a worker.
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Exporter    string  `mapstructure:"exporter"`
	// OTLPEndpoint is the host:port of an OTLP/gRPC collector.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load builds a Config from disk/environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("ARTICLES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("db.dsn", "ARTICLES_DB_DSN", "DATABASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind db.dsn: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("db.backend", DBBackendPostgres)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("db.connect_timeout", 5*time.Second)
	v.SetDefault("db.migrate_on_start", true)
	v.SetDefault("worker.count", 5)
	v.SetDefault("worker.queue_depth", 64)
	v.SetDefault("events.backend", EventsBackendLog)
	v.SetDefault("events.topic", "article-published")
	v.SetDefault("events.pubsub_project", "")
	v.SetDefault("events.kafka_brokers", []string{})
	v.SetDefault("events.publish_timeout", 5*time.Second)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("telemetry.service_name", "articles-api")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.exporter", TelemetryExporterNone)
	v.SetDefault("telemetry.otlp_endpoint", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.DB.Backend {
	case "", DBBackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set (DATABASE_URL)")
		}
	case DBBackendMemory:
	default:
		return fmt.Errorf("db.backend %q is not supported", c.DB.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be > 0")
	}
	if c.DB.MaxConns <= 0 {
		return fmt.Errorf("db.max_conns must be > 0")
	}
	if c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("db.min_conns must be between 0 and db.max_conns")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be > 0")
	}
	if c.Worker.QueueDepth < 0 {
		return fmt.Errorf("worker.queue_depth must be >= 0")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1")
	}
	switch c.Telemetry.Exporter {
	case "", TelemetryExporterNone, TelemetryExporterStdout:
	case TelemetryExporterOTLP:
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint must be set for the otlp exporter")
		}
	default:
		return fmt.Errorf("telemetry.exporter %q is not supported", c.Telemetry.Exporter)
	}
	if c.Events.PublishTimeout < 0 {
		return fmt.Errorf("events.publish_timeout must be >= 0")
	}
	switch c.Events.Backend {
	case EventsBackendLog, EventsBackendMemory:
	case EventsBackendPubSub:
		if c.Events.PubSubProject == "" || c.Events.Topic == "" {
			return fmt.Errorf("events.pubsub_project and events.topic must be set for the pubsub backend")
		}
	case EventsBackendKafka:
		if len(c.Events.KafkaBrokers) == 0 || c.Events.Topic == "" {
			return fmt.Errorf("events.kafka_brokers and events.topic must be set for the kafka backend")
		}
	default:
		return fmt.Errorf("events.backend %q is not supported", c.Events.Backend)
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
