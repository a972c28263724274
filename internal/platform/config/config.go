package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	dfstrings "dealflow/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr     string
	LogLevel string
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Workflow WorkflowConfig
	Document DocumentConfig
	Plan     PlanConfig
	Tracing  TracingConfig
	Relay    RelayConfig
}

// DatabaseConfig configures Postgres. An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig configures Redis. An empty URL selects in-memory plan counters.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the activity relay. No brokers disables publishing.
type KafkaConfig struct {
	Brokers       []string
	ActivityTopic string
	ClientID      string
}

type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	// AdminToken guards the operator routes; empty disables them.
	AdminToken string
}

type WorkflowConfig struct {
	// EnforceRequired makes open required conditions refuse advancement.
	EnforceRequired bool
}

type DocumentConfig struct {
	MaxBytes     int64
	AllowedTypes string
}

type PlanConfig struct {
	DefaultTier string
}

type TracingConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

type RelayConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	SweepSchedule string
	SweepDisabled bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	e := &envReader{}
	cfg := Server{
		Addr:     e.str("DEALFLOW_ADDR", ":8080"),
		LogLevel: e.str("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.integer("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    e.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       e.duration("DB_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       e.list("KAFKA_BROKERS"),
			ActivityTopic: e.str("KAFKA_ACTIVITY_TOPIC", "dealflow.activity"),
			ClientID:      e.str("KAFKA_CLIENT_ID", "dealflow"),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey: e.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     e.str("JWT_ISSUER", "dealflow"),
			AdminToken:    e.str("ADMIN_API_TOKEN", ""),
		},
		Workflow: WorkflowConfig{
			EnforceRequired: e.boolean("WORKFLOW_ENFORCE_REQUIRED", false),
		},
		Document: DocumentConfig{
			MaxBytes:     int64(e.integer("DOCUMENT_MAX_BYTES", 25<<20)),
			AllowedTypes: e.str("DOCUMENT_ALLOWED_TYPES", ""),
		},
		Plan: PlanConfig{
			DefaultTier: e.str("PLAN_DEFAULT_TIER", "standard"),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: e.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  e.str("OTEL_SERVICE_NAME", "dealflow"),
		},
		Relay: RelayConfig{
			PollInterval:  e.duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:     e.integer("OUTBOX_BATCH_SIZE", 100),
			SweepSchedule: e.str("OVERDUE_SWEEP_SCHEDULE", "@every 15m"),
			SweepDisabled: e.boolean("OVERDUE_SWEEP_DISABLED", false),
		},
	}
	if e.err != nil {
		return Server{}, e.err
	}
	return cfg, nil
}

// envReader keeps the first parse error so FromEnv reports it once.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *envReader) list(key string) []string {
	return dfstrings.DedupeAndTrim(strings.Split(os.Getenv(key), ","))
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("config: invalid %s: %w", key, err)
	}
}
