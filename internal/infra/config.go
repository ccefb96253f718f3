package infra

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const insecureSessionSecret = "change-me-in-production"

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"traitors"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"traitors"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"traitors"`
	PGMaxConns  int32  `env:"PG_MAX_CONNS" envDefault:"10"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Backends
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	SessionBackend string `env:"SESSION_BACKEND"`

	// Redis
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"change-me-in-production"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// Game
	GameMasterSecret string        `env:"GAME_MASTER_SECRET"`
	CardDrawCooldown time.Duration `env:"CARD_DRAW_COOLDOWN" envDefault:"72h"`

	// Object storage
	ObjectStorageBackend string        `env:"OBJECT_STORAGE_BACKEND" envDefault:"memory"`
	S3Bucket             string        `env:"S3_BUCKET"`
	S3Region             string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint           string        `env:"S3_ENDPOINT"`
	S3PrivatePrefix      string        `env:"S3_PRIVATE_PREFIX" envDefault:"private"`
	UploadURLTTL         time.Duration `env:"UPLOAD_URL_TTL" envDefault:"15m"`

	// Server
	APIPort   int    `env:"API_PORT" envDefault:"3000"`
	PublicURL string `env:"PUBLIC_URL"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Event outbox: buffer events in Postgres and relay them to Kafka.
	EventOutbox        bool          `env:"EVENT_OUTBOX" envDefault:"false"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Abuse protection: auth attempts per client IP per minute.
	AuthRateLimit int `env:"AUTH_RATE_LIMIT" envDefault:"20"`

	// Reverse proxies (IPs or CIDRs) whose forwarding headers identify the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`

	// External services
	RandomOrgAPIKey string `env:"RANDOM_ORG_API_KEY"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = cfg.StorageBackend
	}
	return cfg, nil
}

// Validate checks for inconsistent or insecure configuration.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not one of postgres, memory", c.StorageBackend)
	}
	switch c.SessionBackend {
	case BackendPostgres, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("SESSION_BACKEND %q is not one of postgres, memory, redis", c.SessionBackend)
	}
	if c.StorageBackend == BackendPostgres && c.PGMaxConns < 1 {
		return fmt.Errorf("PG_MAX_CONNS must be at least 1")
	}
	if c.SessionBackend == BackendPostgres && c.StorageBackend != BackendPostgres {
		return fmt.Errorf("SESSION_BACKEND=postgres requires STORAGE_BACKEND=postgres")
	}
	switch c.ObjectStorageBackend {
	case BackendMemory:
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when OBJECT_STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("OBJECT_STORAGE_BACKEND %q is not one of s3, memory", c.ObjectStorageBackend)
	}
	if c.EventOutbox && (c.StorageBackend != BackendPostgres || !c.KafkaEnabled) {
		return fmt.Errorf("EVENT_OUTBOX requires STORAGE_BACKEND=postgres and KAFKA_ENABLED=true")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.CardDrawCooldown < 0 {
		return fmt.Errorf("CARD_DRAW_COOLDOWN must not be negative")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.SessionSecret == insecureSessionSecret {
		return fmt.Errorf("SESSION_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET is too short (%d chars); minimum 32 characters required", len(c.SessionSecret))
	}
	return nil
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare address is treated as
// a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid prefix %q", raw)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", raw)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
