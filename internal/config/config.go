package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"projecthub/pkg/config"
)

// StorageConfig selects the Store implementation: "postgres" or "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// EventsConfig controls the side-effect pipeline. Atomic writes timeline
// rows and notifications in the mutation's unit of work; otherwise they
// are written after it commits and failures are only logged.
type EventsConfig struct {
	Atomic bool `yaml:"atomic"`
}

type SweepConfig struct {
	Interval      time.Duration `yaml:"interval"`
	Timezone      string        `yaml:"timezone"`
	RunOnStart    bool          `yaml:"run_on_start"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	OverdueAction string        `yaml:"overdue_action"`
	// Embedded runs the scheduler inside the API server instead of cmd/worker.
	Embedded bool `yaml:"embedded"`
}

type AuthzConfig struct {
	TaskUpdateRequiresAssignee bool `yaml:"task_update_requires_assignee"`
}

type BootstrapConfig struct {
	SuperuserEmail    string `yaml:"superuser_email"`
	SuperuserPassword string `yaml:"superuser_password"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type Config struct {
	Server    config.ServerConfig `yaml:"server"`
	DB        config.DBConfig     `yaml:"db"`
	Redis     config.RedisConfig  `yaml:"redis"`
	MQ        config.MQConfig     `yaml:"mq"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Log       config.LogConfig    `yaml:"log"`
	Sentry    config.SentryConfig `yaml:"sentry"`
	Storage   StorageConfig       `yaml:"storage"`
	Events    EventsConfig        `yaml:"events"`
	Sweep     SweepConfig         `yaml:"sweep"`
	Authz     AuthzConfig         `yaml:"authz"`
	Bootstrap BootstrapConfig     `yaml:"bootstrap"`
	Outbox    OutboxConfig        `yaml:"outbox"`
}

// Load 读取 base.yaml + <env>.yaml，再用环境变量覆盖
func Load(env, configDir string) (*Config, error) {
	if env == "" {
		env = config.GetConfigEnv()
	}
	if configDir == "" {
		configDir = config.GetEnv("CONFIG_DIR", "config")
	}

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := defaults()
	if err := config.Decode(cfgMap, cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideSentryFromEnv(&cfg.Sentry)
	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:  config.ServerConfig{Port: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:     config.LogConfig{Level: "info"},
		Storage: StorageConfig{Driver: "postgres"},
		Events:  EventsConfig{Atomic: true},
		Sweep: SweepConfig{
			Interval:      24 * time.Hour,
			Timezone:      "UTC",
			LockTTL:       10 * time.Minute,
			OverdueAction: "task_updated",
		},
		JWT: config.JWTConfig{AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour},
		Outbox: OutboxConfig{
			Interval:   2 * time.Second,
			BatchSize:  100,
			MaxRetries: 5,
		},
	}
}

func overrideFromEnv(cfg *Config) {
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if atomic := os.Getenv("EVENTS_ATOMIC"); atomic != "" {
		if v, err := strconv.ParseBool(atomic); err == nil {
			cfg.Events.Atomic = v
		}
	}
	if tz := os.Getenv("SWEEP_TIMEZONE"); tz != "" {
		cfg.Sweep.Timezone = tz
	}
	if email := os.Getenv("SUPERUSER_EMAIL"); email != "" {
		cfg.Bootstrap.SuperuserEmail = email
	}
	if password := os.Getenv("SUPERUSER_PASSWORD"); password != "" {
		cfg.Bootstrap.SuperuserPassword = password
	}
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive")
	}
	if _, err := time.LoadLocation(c.Sweep.Timezone); err != nil {
		return fmt.Errorf("sweep.timezone: %w", err)
	}
	return nil
}
