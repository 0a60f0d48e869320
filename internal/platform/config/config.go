package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean. Values come
// from environment variables with development-friendly defaults.
type Config struct {
	Addr          string
	JWTSigningKey string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	LLM      LLMConfig
	Limits   LimitsConfig
}

// PostgresConfig holds the order/audit database settings. An empty URL means
// the service runs on in-memory stores (dev mode).
type PostgresConfig struct {
	URL string
}

// RedisConfig holds cache/conversation store settings. An empty URL disables
// Redis; the service degrades to in-process state.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit event stream settings. Empty brokers disable
// publishing; the durable store append remains the primary audit path.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LLMConfig holds text-generation provider settings.
type LLMConfig struct {
	Provider    string // "openai" or "googleai"
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// LimitsConfig holds the trust-gate thresholds. Defaults mirror the documented
// business rules; override per deployment.
type LimitsConfig struct {
	MaxMessageLen          int
	BlockRiskThreshold     int
	MaxCancellationsPerDay int
	RateLimitWindow        time.Duration
	RateLimitMax           int
	CacheTTL               time.Duration
	HistoryTurns           int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          getEnv("ORDERGATE_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "ordergate.audit"),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:      os.Getenv("LLM_API_KEY"),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 10*time.Second),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		},
		Limits: LimitsConfig{
			MaxMessageLen:          getEnvInt("MAX_MESSAGE_LEN", 1000),
			BlockRiskThreshold:     getEnvInt("BLOCK_RISK_THRESHOLD", 70),
			MaxCancellationsPerDay: getEnvInt("MAX_CANCELLATIONS_PER_DAY", 5),
			RateLimitWindow:        getEnvDuration("RATE_LIMIT_WINDOW", 5*time.Minute),
			RateLimitMax:           getEnvInt("RATE_LIMIT_MAX", 50),
			CacheTTL:               getEnvDuration("INTENT_CACHE_TTL", time.Hour),
			HistoryTurns:           getEnvInt("HISTORY_TURNS", 20),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
