package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	TelegramToken   string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ClinicTimezone  string `envconfig:"CLINIC_TIMEZONE" default:"Europe/Istanbul"`
	ClinicalProfile string `envconfig:"CLINICAL_PROFILE"`

	DB     DBConfig     `ignored:"true"`
	Redis  RedisConfig  `ignored:"true"`
	Lock   LockConfig   `ignored:"true"`
	Logger LoggerConfig `ignored:"true"`
}

// Sections are processed with their own prefix (DB_HOST, REDIS_PORT, ...).
// Their fields carry no envconfig tag: a tag would make envconfig fall back to
// the bare name, and bare names such as USER or HOST are set by most shells.

type DBConfig struct {
	Host     string `default:"localhost"`
	Port     string `default:"5432"`
	User     string `default:"postgres"`
	Password string `default:"postgres"`
	Name     string `default:"glucose_guide"`
	SSLMode  string `default:"disable"`
}

// DSN renders the libpq connection string for the postgres driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string `default:"localhost"`
	Port     string `default:"6379"`
	Password string
	DB       int `default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type LockConfig struct {
	Backend string        `default:"memory"`
	TTL     time.Duration `default:"30s"`
	Wait    time.Duration `default:"10s"`
}

type LoggerConfig struct {
	Level  string `default:"info"`
	Output string `default:"stderr"`
	Format string `default:"json"`
}

// Logger converts the env representation into the logger package config.
func (c LoggerConfig) Logger() logger.Config {
	return logger.Config{
		Level:      parseLogLevel(c.Level),
		OutputPath: c.Output,
		Format:     c.Format,
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// Load reads the configuration from the environment. Call godotenv.Load first
// when a .env file should be honoured.
func Load() (*Config, error) {
	var cfg Config
	sections := []struct {
		prefix string
		spec   interface{}
	}{
		{"", &cfg},
		{"DB", &cfg.DB},
		{"REDIS", &cfg.Redis},
		{"LOCK", &cfg.Lock},
		{"LOG", &cfg.Logger},
	}
	for _, section := range sections {
		if err := envconfig.Process(section.prefix, section.spec); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		problems = append(problems, fmt.Sprintf("CLINIC_TIMEZONE %q is not a known time zone", c.ClinicTimezone))
	}
	switch c.Lock.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if c.Redis.Host == "" {
			problems = append(problems, "REDIS_HOST is required when LOCK_BACKEND=redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("LOCK_BACKEND must be %q or %q", LockBackendMemory, LockBackendRedis))
	}
	if c.Lock.TTL <= 0 || c.Lock.Wait <= 0 {
		problems = append(problems, "LOCK_TTL and LOCK_WAIT must be positive")
	}
	if c.Logger.Format != "json" && c.Logger.Format != "text" {
		problems = append(problems, "LOG_FORMAT must be json or text")
	}
	if c.DB.Host == "" || c.DB.Name == "" {
		problems = append(problems, "DB_HOST and DB_NAME are required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Location returns the clinic time zone used to derive measurement days and windows.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
