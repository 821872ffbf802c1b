// Package config loads service configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends selectable for sessions and the token blacklist.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// DevSigningKey is only accepted when APP_ENV is dev or test.
const DevSigningKey = "salesgate-dev-signing-key-change-me"

// MaxTenantCacheTTL bounds how stale a cached tenant may be.
const MaxTenantCacheTTL = 10 * time.Second

const minSigningKeyBytes = 32

// Config holds application configuration loaded from the environment.
type Config struct {
	Addr     string `mapstructure:"SALESGATE_ADDR"`
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	MigrateOnStart bool          `mapstructure:"MIGRATE_ON_START"`

	RedisURL          string        `mapstructure:"REDIS_URL"`
	RedisPoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	RedisMinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	RedisDialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	RedisReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	RedisWriteTimeout time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`

	// SessionStore and BlacklistStore select memory, postgres or redis.
	SessionStore   string `mapstructure:"SESSION_STORE"`
	BlacklistStore string `mapstructure:"BLACKLIST_STORE"`

	JWTSigningKey           string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTSigningKeyID         string        `mapstructure:"JWT_SIGNING_KEY_ID"`
	JWTPreviousSigningKey   string        `mapstructure:"JWT_PREVIOUS_SIGNING_KEY"`
	JWTPreviousSigningKeyID string        `mapstructure:"JWT_PREVIOUS_SIGNING_KEY_ID"`
	JWTIssuer               string        `mapstructure:"JWT_ISSUER"`
	TokenTTL                time.Duration `mapstructure:"TOKEN_TTL"`
	BcryptCost              int           `mapstructure:"BCRYPT_COST"`

	TenantCacheTTL         time.Duration `mapstructure:"TENANT_CACHE_TTL"`
	BlacklistPurgeInterval time.Duration `mapstructure:"BLACKLIST_PURGE_INTERVAL"`
	TouchTimeout           time.Duration `mapstructure:"SESSION_TOUCH_TIMEOUT"`
	RequestTimeout         time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxBodyBytes           int64         `mapstructure:"MAX_BODY_BYTES"`

	AdminAPIToken string `mapstructure:"ADMIN_API_TOKEN"`

	// KafkaBrokers is a comma-separated broker list. Empty disables the Kafka audit sink.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	AuditTopic   string `mapstructure:"AUDIT_TOPIC"`

	SeedDemoData bool `mapstructure:"SEED_DEMO_DATA"`
}

// RedisConfig is the subset the Redis client needs.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is the subset the audit producer needs.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// Load reads .env (if present), then builds and validates Config from the environment.
// Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SALESGATE_ADDR", ":8080")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 20)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "2s")
	v.SetDefault("REDIS_READ_TIMEOUT", "500ms")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "500ms")
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("BLACKLIST_STORE", StoreMemory)
	v.SetDefault("JWT_SIGNING_KEY", "")
	v.SetDefault("JWT_SIGNING_KEY_ID", "k1")
	v.SetDefault("JWT_PREVIOUS_SIGNING_KEY", "")
	v.SetDefault("JWT_PREVIOUS_SIGNING_KEY_ID", "")
	v.SetDefault("JWT_ISSUER", "salesgate")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("TENANT_CACHE_TTL", "3s")
	v.SetDefault("BLACKLIST_PURGE_INTERVAL", "10m")
	v.SetDefault("SESSION_TOUCH_TIMEOUT", "2s")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("MAX_BODY_BYTES", 16*1024)
	v.SetDefault("ADMIN_API_TOKEN", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_TOPIC", "salesgate.auth.audit")
	v.SetDefault("SEED_DEMO_DATA", false)
}

// IsDev reports whether development shortcuts (dev signing key, demo seed) are allowed.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

func (c *Config) applyDevDefaults() {
	if c.JWTSigningKey == "" && c.IsDev() {
		c.JWTSigningKey = DevSigningKey
	}
}

// Validate rejects configurations that would weaken token integrity or
// reference backends that are not configured.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("SALESGATE_ADDR must be set"))
	}
	if c.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set"))
	}
	if !c.IsDev() {
		if c.JWTSigningKey == DevSigningKey {
			errs = append(errs, errors.New("JWT_SIGNING_KEY must not be the development key"))
		}
		if len(c.JWTSigningKey) < minSigningKeyBytes {
			errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes", minSigningKeyBytes))
		}
	}
	if c.JWTPreviousSigningKey != "" && (c.JWTPreviousSigningKeyID == "" || c.JWTPreviousSigningKeyID == c.JWTSigningKeyID) {
		errs = append(errs, errors.New("JWT_PREVIOUS_SIGNING_KEY_ID must be set and differ from JWT_SIGNING_KEY_ID"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.TenantCacheTTL < 0 || c.TenantCacheTTL > MaxTenantCacheTTL {
		errs = append(errs, fmt.Errorf("TENANT_CACHE_TTL must be between 0 and %s", MaxTenantCacheTTL))
	}
	for name, kind := range map[string]string{"SESSION_STORE": c.SessionStore, "BLACKLIST_STORE": c.BlacklistStore} {
		switch kind {
		case StoreMemory:
		case StorePostgres:
			if c.DatabaseURL == "" {
				errs = append(errs, fmt.Errorf("%s=postgres requires DATABASE_URL", name))
			}
		case StoreRedis:
			if c.RedisURL == "" {
				errs = append(errs, fmt.Errorf("%s=redis requires REDIS_URL", name))
			}
		default:
			errs = append(errs, fmt.Errorf("%s must be one of memory, postgres, redis", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     c.RedisPoolSize,
		MinIdleConns: c.RedisMinIdleConns,
		DialTimeout:  c.RedisDialTimeout,
		ReadTimeout:  c.RedisReadTimeout,
		WriteTimeout: c.RedisWriteTimeout,
	}
}

func (c *Config) Kafka() KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{Brokers: brokers, AuditTopic: c.AuditTopic}
}
