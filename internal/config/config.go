// Package config carga la configuración del servicio desde YAML y la
// completa con variables de entorno. El orden es: defaults → YAML → env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name     string `yaml:"name"`
		Env      string `yaml:"app_env"` // dev | prod
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | fs | postgres
		DSN      string `yaml:"dsn"`
		Dir      string `yaml:"dir"`
		Migrate  bool   `yaml:"migrate"`
		Postgres struct {
			MaxConns        int           `yaml:"max_conns"`
			MinConns        int           `yaml:"min_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string        `yaml:"kind"` // memory | redis
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Audit struct {
		Driver         string `yaml:"driver"` // log | memory | sqlite
		SQLitePath     string `yaml:"sqlite_path"`
		MemoryCapacity int    `yaml:"memory_capacity"`
	} `yaml:"audit"`

	Crypto struct {
		KeyBits           int           `yaml:"key_bits"`
		CertValidity      time.Duration `yaml:"cert_validity"` // 0 = 2 años calendario
		KeygenConcurrency int           `yaml:"keygen_concurrency"`
	} `yaml:"crypto"`

	Security struct {
		SecretboxMasterKey string `yaml:"secretbox_master_key"`
		OperatorJWTSecret  string `yaml:"operator_jwt_secret"`
		PasswordMinLength  int    `yaml:"password_min_length"`
		// AuthRateLimit frena altas y HTTP Basic por usuario+IP. Max 0 = sin límite.
		AuthRateLimit struct {
			Max    int           `yaml:"max"`
			Window time.Duration `yaml:"window"`
		} `yaml:"auth_rate_limit"`
	} `yaml:"security"`
}

// Default devuelve una configuración completa para desarrollo local.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load lee path (si no está vacío), aplica defaults, overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// sane defaults
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "securesign"
	}
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 20 << 20 // documentos como data URL
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Driver == "fs" && c.Storage.Dir == "" {
		c.Storage.Dir = "./data/securesign"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "securesign"
	}
	if c.Audit.Driver == "" {
		c.Audit.Driver = "memory"
	}
	if c.Audit.MemoryCapacity == 0 {
		c.Audit.MemoryCapacity = 100
	}
	if c.Crypto.KeyBits == 0 {
		c.Crypto.KeyBits = 2048
	}
	if c.Crypto.KeygenConcurrency == 0 {
		c.Crypto.KeygenConcurrency = 4
	}
	if c.Security.PasswordMinLength == 0 {
		c.Security.PasswordMinLength = 6
	}
	if c.Security.AuthRateLimit.Window == 0 {
		c.Security.AuthRateLimit.Window = time.Minute
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvInt("SERVER_MAX_BODY_BYTES"); ok {
		c.Server.MaxBodyBytes = int64(v)
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_DIR"); ok {
		c.Storage.Dir = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE"); ok {
		c.Storage.Migrate = v
	}
	if v, ok := getEnvInt("STORAGE_PG_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvDur("STORAGE_PG_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvDur("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("AUDIT_DRIVER"); ok {
		c.Audit.Driver = v
	}
	if v, ok := getEnvStr("AUDIT_SQLITE_PATH"); ok {
		c.Audit.SQLitePath = v
	}
	if v, ok := getEnvInt("AUDIT_MEMORY_CAPACITY"); ok {
		c.Audit.MemoryCapacity = v
	}

	if v, ok := getEnvInt("CRYPTO_KEY_BITS"); ok {
		c.Crypto.KeyBits = v
	}
	if v, ok := getEnvDur("CRYPTO_CERT_VALIDITY"); ok {
		c.Crypto.CertValidity = v
	}
	if v, ok := getEnvInt("CRYPTO_KEYGEN_CONCURRENCY"); ok {
		c.Crypto.KeygenConcurrency = v
	}

	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretboxMasterKey = v
	}
	if v, ok := getEnvStr("OPERATOR_JWT_SECRET"); ok {
		c.Security.OperatorJWTSecret = v
	}
	if v, ok := getEnvInt("PASSWORD_MIN_LENGTH"); ok {
		c.Security.PasswordMinLength = v
	}
	if v, ok := getEnvInt("AUTH_RATE_LIMIT_MAX"); ok {
		c.Security.AuthRateLimit.Max = v
	}
	if v, ok := getEnvDur("AUTH_RATE_LIMIT_WINDOW"); ok {
		c.Security.AuthRateLimit.Window = v
	}
}

// IsProd reporta si el entorno es producción.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// Validate junta todos los problemas en un único error.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "fs":
		if c.Storage.Dir == "" {
			add("storage.dir is required for the fs driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			add("storage.dsn is required for the postgres driver")
		}
	default:
		add("storage.driver %q not supported (memory|fs|postgres)", c.Storage.Driver)
	}

	switch strings.ToLower(c.Cache.Kind) {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			add("cache.redis.addr is required for the redis cache")
		}
	default:
		add("cache.kind %q not supported (memory|redis)", c.Cache.Kind)
	}

	switch strings.ToLower(c.Audit.Driver) {
	case "log", "memory":
	case "sqlite":
		if c.Audit.SQLitePath == "" {
			add("audit.sqlite_path is required for the sqlite audit sink")
		}
	default:
		add("audit.driver %q not supported (log|memory|sqlite)", c.Audit.Driver)
	}
	if c.Audit.MemoryCapacity < 0 {
		add("audit.memory_capacity must be positive")
	}

	if c.Crypto.KeyBits != 2048 && c.Crypto.KeyBits != 4096 {
		add("crypto.key_bits must be 2048 or 4096, got %d", c.Crypto.KeyBits)
	}
	if c.Crypto.CertValidity < 0 {
		add("crypto.cert_validity must not be negative")
	}
	if c.Crypto.KeygenConcurrency < 1 {
		add("crypto.keygen_concurrency must be >= 1")
	}
	if c.Security.PasswordMinLength < 1 {
		add("security.password_min_length must be >= 1")
	}
	if c.Security.AuthRateLimit.Max < 0 || c.Security.AuthRateLimit.Window <= 0 {
		add("security.auth_rate_limit needs max >= 0 and a positive window")
	}

	// salvaguardas de prod
	if c.IsProd() {
		if c.Storage.Driver != "memory" && c.Security.SecretboxMasterKey == "" {
			add("security.secretbox_master_key is required in prod (private keys at rest)")
		}
		if len(c.Security.OperatorJWTSecret) < 32 {
			add("security.operator_jwt_secret must be at least 32 bytes in prod")
		}
	}
	return errors.Join(errs...)
}
