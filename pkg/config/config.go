package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Scheduler  SchedulerConfig
	Collector  CollectorConfig
	NATS       NATSConfig
	Redis      RedisConfig
	CloudWatch CloudWatchConfig
	Probe      ProbeConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type SchedulerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	StuckThreshold time.Duration
	MaxRetries     int
}

type CollectorConfig struct {
	RequestTimeout time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type CloudWatchConfig struct {
	Enabled         bool
	Namespace       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	FlushInterval   time.Duration
}

// ProbeConfig configures the built-in signed metrics endpoint that serves this
// process's own gauges. It exists so a project can point a release at the
// service itself during integration testing.
type ProbeConfig struct {
	Enabled            bool
	SigningSecret      string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	pollInterval, err := time.ParseDuration(getEnv("SCHEDULER_POLL_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_POLL_INTERVAL: %w", err)
	}

	batchSize, err := strconv.Atoi(getEnv("SCHEDULER_BATCH_SIZE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_BATCH_SIZE: %w", err)
	}

	stuckThreshold, err := time.ParseDuration(getEnv("SCHEDULER_STUCK_THRESHOLD", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_STUCK_THRESHOLD: %w", err)
	}

	maxRetries, err := strconv.Atoi(getEnv("SCHEDULER_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_MAX_RETRIES: %w", err)
	}

	collectorTimeout, err := time.ParseDuration(getEnv("COLLECTOR_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid COLLECTOR_TIMEOUT: %w", err)
	}

	redisTTL, err := time.ParseDuration(getEnv("REDIS_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cwFlushInterval, err := time.ParseDuration(getEnv("CLOUDWATCH_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_FLUSH_INTERVAL: %w", err)
	}

	probeRPS, err := strconv.ParseFloat(getEnv("PROBE_RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_RATE_LIMIT_RPS: %w", err)
	}

	probeBurst, err := strconv.Atoi(getEnv("PROBE_RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  splitList(getEnv("WS_ALLOWED_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "seqpulse"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			PollInterval:   pollInterval,
			BatchSize:      batchSize,
			StuckThreshold: stuckThreshold,
			MaxRetries:     maxRetries,
		},
		Collector: CollectorConfig{
			RequestTimeout: collectorTimeout,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_VERDICT_SUBJECT", "seqpulse.verdicts.created"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			TTL:          redisTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		CloudWatch: CloudWatchConfig{
			Enabled:         getEnvBool("CLOUDWATCH_ENABLED", false),
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "SeqPulse/Scheduler"),
			Region:          getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:     getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			FlushInterval:   cwFlushInterval,
		},
		Probe: ProbeConfig{
			Enabled:            getEnvBool("PROBE_ENABLED", false),
			SigningSecret:      getEnv("PROBE_SIGNING_SECRET", ""),
			RateLimitPerSecond: probeRPS,
			RateLimitBurst:     probeBurst,
		},
	}

	if cfg.Probe.Enabled && cfg.Probe.SigningSecret == "" {
		return nil, fmt.Errorf("PROBE_SIGNING_SECRET is required when PROBE_ENABLED=true")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
