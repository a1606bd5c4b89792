package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	HTTPPort int    `yaml:"http_port"`

	DB     DBConfig     `yaml:"db"`
	Redis  RedisConfig  `yaml:"redis"`
	Auth   AuthConfig   `yaml:"auth"`
	Worker WorkerConfig `yaml:"worker"`

	CORSOrigins  []string `yaml:"cors_origins"`
	OTLPEndpoint string   `yaml:"otlp_endpoint"`
}

type DBConfig struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"-"`
	Database       string        `yaml:"database"`
	Schema         string        `yaml:"schema"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	StorageTimeout time.Duration `yaml:"storage_timeout"`
}

// DSN is the pgx connection string; search_path selects the schema.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Schema)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	Secret      string        `yaml:"-"`
	UserTTL     time.Duration `yaml:"user_ttl"`
	ShopTTL     time.Duration `yaml:"shop_ttl"`
	DriverTTL   time.Duration `yaml:"driver_ttl"`
	HashMemory  uint32        `yaml:"hash_memory_kib"`
	HashTime    uint32        `yaml:"hash_time"`
	HashThreads uint8         `yaml:"hash_threads"`
}

type WorkerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

func Default() Config {
	return Config{
		AppEnv:   "local",
		LogLevel: "info",
		HTTPPort: 8080,
		DB: DBConfig{
			Host:           "localhost",
			Port:           "5432",
			Schema:         "public",
			MaxOpenConns:   25,
			StorageTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			UserTTL:     time.Hour,
			ShopTTL:     3 * time.Hour,
			DriverTTL:   24 * time.Hour,
			HashMemory:  64 * 1024,
			HashTime:    1,
			HashThreads: 4,
		},
		Worker:      WorkerConfig{ReconcileInterval: time.Minute},
		CORSOrigins: []string{"*"},
	}
}

// Load reads .env (if present), then the YAML file named by TAKKEH_CONFIG
// (default config.yaml, optional), then environment overrides.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	path := getEnv("TAKKEH_CONFIG", "config.yaml")
	if err := cfg.mergeFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.DB.Host = getEnv("BLUEPRINT_DB_HOST", c.DB.Host)
	c.DB.Port = getEnv("BLUEPRINT_DB_PORT", c.DB.Port)
	c.DB.Username = getEnv("BLUEPRINT_DB_USERNAME", c.DB.Username)
	c.DB.Password = getEnv("BLUEPRINT_DB_PASSWORD", c.DB.Password)
	c.DB.Database = getEnv("BLUEPRINT_DB_DATABASE", c.DB.Database)
	c.DB.Schema = getEnv("BLUEPRINT_DB_SCHEMA", c.DB.Schema)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Auth.Secret = getEnv("JWT_SECRET", c.Auth.Secret)

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}

	var err error
	if c.HTTPPort, err = getInt("HTTP_PORT", c.HTTPPort); err != nil {
		return err
	}
	if c.Redis.DB, err = getInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Worker.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", c.Worker.ReconcileInterval); err != nil {
		return err
	}
	if c.DB.StorageTimeout, err = getDuration("STORAGE_TIMEOUT", c.DB.StorageTimeout); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if len(c.Auth.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 32 bytes"))
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %d", c.HTTPPort))
	}
	if c.DB.Database == "" {
		errs = append(errs, errors.New("BLUEPRINT_DB_DATABASE is required"))
	}
	if c.Auth.UserTTL <= 0 || c.Auth.ShopTTL <= 0 || c.Auth.DriverTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if c.Worker.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("reconcile interval must be positive"))
	}
	if c.DB.StorageTimeout <= 0 {
		errs = append(errs, errors.New("storage timeout must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
