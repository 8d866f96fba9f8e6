package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream credentials. An empty value switches the matching client
	// into stub mode instead of failing startup.
	MapboxToken    string
	OpenWeatherKey string

	UpstreamTimeout time.Duration
	CacheTTL        time.Duration

	RetryMaxAttempts   int
	RetryInitialDelay  time.Duration
	RetryBackoffFactor float64

	// DatabaseURL is optional; when empty, persistence is disabled and
	// assessments are served without being stored.
	DatabaseURL      string
	PersistQueueSize int

	// Kafka publishing is optional and enabled by setting KAFKA_BROKERS.
	KafkaBrokers   []string
	KafkaRiskTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("RETRY_INITIAL_DELAY", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	retryAttempts, err := parseInt("RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	retryFactor, err := parseFloat("RETRY_BACKOFF_FACTOR", 2.0)
	if err != nil {
		return nil, err
	}
	queueSize, err := parseInt("PERSIST_QUEUE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:    os.Getenv("MAPBOX_TOKEN"),
		OpenWeatherKey: os.Getenv("OPENWEATHER_KEY"),

		UpstreamTimeout: upstreamTimeout,
		CacheTTL:        cacheTTL,

		RetryMaxAttempts:   retryAttempts,
		RetryInitialDelay:  retryDelay,
		RetryBackoffFactor: retryFactor,

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PersistQueueSize: queueSize,

		KafkaBrokers:   parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaRiskTopic: envOrDefault("KAFKA_RISK_TOPIC", "risk-assessments"),
	}

	if cfg.RetryMaxAttempts < 1 {
		return nil, errors.New("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.RetryBackoffFactor < 1 {
		return nil, errors.New("RETRY_BACKOFF_FACTOR must be at least 1")
	}
	if cfg.PersistQueueSize < 1 {
		return nil, errors.New("PERSIST_QUEUE_SIZE must be at least 1")
	}

	return cfg, nil
}

// KafkaEnabled reports whether risk events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
