// Package config builds the service configuration from environment variables
// so main stays lean. Values parse once at startup; downstream components
// receive plain immutable structs.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	id "xs2a/pkg/domain"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres captures the relational store configuration. An empty DSN keeps
// the service on its in-memory stores.
type Postgres struct {
	DSN            string
	MigrationsPath string
}

// Redis captures the redirect-session cache configuration. An empty URL
// disables redis; the redirect cache then falls back to memory.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit sink configuration. No brokers means no kafka
// sink; audit events still reach the store.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Audit captures audit pipeline tuning.
type Audit struct {
	BufferSize int
}

// Profile captures the ASPSP profile inputs consumed by the authorisation
// flow.
type Profile struct {
	ScaApproaches        []id.ScaApproach
	RedirectURLExpiry    time.Duration
	AuthorisationExpiry  time.Duration
	MultilevelScaEnabled bool
	ScaExemptionAllowed  bool
}

// Config is the full service configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Audit    Audit
	Profile  Profile
	LogLevel string
}

// FromEnv builds the configuration from environment variables, applying
// development defaults for anything unset.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("XS2A_ADDR", ":8080"),
			JWTSigningKey: envOr("XS2A_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN:            os.Getenv("XS2A_POSTGRES_DSN"),
			MigrationsPath: envOr("XS2A_MIGRATIONS_PATH", "migrations"),
		},
		Redis: Redis{
			URL:          os.Getenv("XS2A_REDIS_URL"),
			PoolSize:     envInt("XS2A_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("XS2A_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("XS2A_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("XS2A_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("XS2A_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("XS2A_KAFKA_BROKERS"),
			Topic:   envOr("XS2A_KAFKA_AUDIT_TOPIC", "xs2a.audit.events"),
		},
		Audit: Audit{
			BufferSize: envInt("XS2A_AUDIT_BUFFER_SIZE", 1024),
		},
		Profile: Profile{
			ScaApproaches:        envApproaches("XS2A_SCA_APPROACHES"),
			RedirectURLExpiry:    envDuration("XS2A_REDIRECT_URL_EXPIRY", 10*time.Minute),
			AuthorisationExpiry:  envDuration("XS2A_AUTHORISATION_EXPIRY", 24*time.Hour),
			MultilevelScaEnabled: envOr("XS2A_MULTILEVEL_SCA_ENABLED", "true") == "true",
			ScaExemptionAllowed:  os.Getenv("XS2A_SCA_EXEMPTION_ALLOWED") == "true",
		},
		LogLevel: envOr("XS2A_LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envApproaches parses a comma-separated approach list, dropping unknown
// values. An empty result lets the profile fall back to its defaults.
func envApproaches(key string) []id.ScaApproach {
	var out []id.ScaApproach
	for _, raw := range envList(key) {
		approach, err := id.ParseScaApproach(strings.ToUpper(raw))
		if err != nil {
			continue
		}
		out = append(out, approach)
	}
	return out
}
