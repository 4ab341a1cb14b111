package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	stringsutil "idlink/pkg/platform/strings"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr         string
	InstanceName string

	DatabaseURL string
	Redis       RedisConfig

	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// Admins is the allowlist of messaging-platform identifiers permitted to
	// perform admin actions (subject to identifiability).
	Admins []string

	// UnlinkCooldown gates identity removal after a ban or identity access.
	// Zero disables enforcement.
	UnlinkCooldown time.Duration

	// AllowedEmailDomains restricts institution account creation when
	// non-empty. Empty means any email is accepted.
	AllowedEmailDomains []string

	JWTSigningKey string
	// AdminPasswordHash is a bcrypt hash; admin login is disabled when empty.
	AdminPasswordHash string
}

// RedisConfig holds connection settings for the cooldown store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:         envOr("IDLINK_ADDR", ":8080"),
		InstanceName: envOr("IDLINK_INSTANCE_NAME", "idlink"),
		DatabaseURL:  os.Getenv("IDLINK_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("IDLINK_REDIS_URL"),
			PoolSize:     envInt("IDLINK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("IDLINK_REDIS_MIN_IDLE", 2),
			DialTimeout:  envSeconds("IDLINK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envSeconds("IDLINK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envSeconds("IDLINK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers:        envList("IDLINK_KAFKA_BROKERS"),
		AuditTopic:          envOr("IDLINK_AUDIT_TOPIC", "idlink.audit"),
		Admins:              envList("IDLINK_ADMINS"),
		UnlinkCooldown:      envSeconds("IDLINK_UNLINK_COOLDOWN", 3600*time.Second),
		AllowedEmailDomains: envList("IDLINK_ALLOWED_EMAIL_DOMAINS"),
		JWTSigningKey:       envOr("IDLINK_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminPasswordHash:   os.Getenv("IDLINK_ADMIN_PASSWORD_HASH"),
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

// envSeconds reads a non-negative integer number of seconds.
func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := stringsutil.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
