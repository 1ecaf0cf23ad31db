package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mohans/arqmon/internal/log"
)

// Config is loaded once at start-up and passed down explicitly.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Redis RedisConfig `mapstructure:"redis"`
	Store StoreConfig `mapstructure:"store"`
	Jobs  JobsConfig  `mapstructure:"jobs"`
	Log   log.Config  `mapstructure:"log"`
}

type APIConfig struct {
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	Prefix             string   `mapstructure:"prefix"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	RateLimit          float64  `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst          int      `mapstructure:"rate_burst"`
}

func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	SSL      bool   `mapstructure:"ssl"`
}

func (c RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

type StoreConfig struct {
	Type              string        `mapstructure:"type"` // arq | asynq
	QueueName         string        `mapstructure:"queue_name"`
	AbortTimeout      time.Duration `mapstructure:"abort_timeout"`
	AbortPollInterval time.Duration `mapstructure:"abort_poll_interval"`
}

type JobsConfig struct {
	// MaxJobs caps the keys one listing may fan out over; it also sizes the cache.
	MaxJobs               int           `mapstructure:"max_jobs"`
	Concurrency           int           `mapstructure:"concurrency"`
	RecentWindow          time.Duration `mapstructure:"recent_window"`
	Timezone              string        `mapstructure:"timezone"`
	TolerateResolveErrors bool          `mapstructure:"tolerate_resolve_errors"`
}

// Location resolves Timezone, falling back to UTC when it is empty.
func (c JobsConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.prefix", "/api")
	v.SetDefault("api.cors_allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 20)

	v.SetDefault("redis.host", "redis")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ssl", false)

	v.SetDefault("store.type", "arq")
	v.SetDefault("store.queue_name", "arq:queue")
	v.SetDefault("store.abort_timeout", "5s")
	v.SetDefault("store.abort_poll_interval", "500ms")

	v.SetDefault("jobs.max_jobs", 50000)
	v.SetDefault("jobs.concurrency", 5)
	v.SetDefault("jobs.recent_window", "1h")
	v.SetDefault("jobs.timezone", "UTC")
	v.SetDefault("jobs.tolerate_resolve_errors", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads defaults, then the optional YAML file at path, then the
// environment. A .env file (or the one named by ENV_FILE) is loaded into
// the environment first; a missing .env is not an error.
func Load(path string) (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Jobs.MaxJobs <= 0 {
		return fmt.Errorf("jobs.max_jobs must be positive, got %d", c.Jobs.MaxJobs)
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs.concurrency must be positive, got %d", c.Jobs.Concurrency)
	}
	switch c.Store.Type {
	case "arq", "asynq":
	default:
		return fmt.Errorf("unsupported store type %q", c.Store.Type)
	}
	if _, err := c.Jobs.Location(); err != nil {
		return fmt.Errorf("jobs.timezone: %w", err)
	}
	return nil
}
