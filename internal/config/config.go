package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

// Create-notification failure policies.
const (
	FailureLog       = "log"
	FailurePropagate = "propagate"
)

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type NotificationsConfig struct {
	OnCreateFailure string `yaml:"on_create_failure"`
}

type SchedulerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	DailySummaryCron string        `yaml:"daily_summary_cron"`
	Workers          int           `yaml:"workers"`
	QueueSize        int           `yaml:"queue_size"`
	Timezone         string        `yaml:"timezone"`
}

type TelegramConfig struct {
	BotToken      string        `yaml:"bot_token"`
	WebhookSecret string        `yaml:"webhook_secret"`
	LinkTTL       time.Duration `yaml:"link_ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type FilesConfig struct {
	FontPath string `yaml:"font_path"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email         EmailConfig         `yaml:"email"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	API           struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"api"`
	Log   LogConfig   `yaml:"log"`
	Files FilesConfig `yaml:"files"`
}

// Load reads .env (if present), the YAML file at path and the environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Scheduler.Enabled = true
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = "noreply@example.com"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL == 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Notifications.OnCreateFailure == "" {
		c.Notifications.OnCreateFailure = FailureLog
	}
	if c.Scheduler.SweepInterval == 0 {
		c.Scheduler.SweepInterval = 60 * time.Second
	}
	if c.Scheduler.DailySummaryCron == "" {
		c.Scheduler.DailySummaryCron = "0 8 * * *"
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = 2
	}
	if c.Scheduler.QueueSize <= 0 {
		c.Scheduler.QueueSize = 256
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "UTC"
	}
	if c.Telegram.LinkTTL <= 0 {
		c.Telegram.LinkTTL = 15 * time.Minute
	}
	if c.API.PageSize <= 0 {
		c.API.PageSize = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TASKHUB_DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("TASKHUB_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("TASKHUB_SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
	if v := os.Getenv("TASKHUB_TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TASKHUB_TELEGRAM_WEBHOOK_SECRET"); v != "" {
		c.Telegram.WebhookSecret = v
	}
	if v := os.Getenv("TASKHUB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKHUB_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Notifications.OnCreateFailure {
	case FailureLog, FailurePropagate:
	default:
		return fmt.Errorf("notifications.on_create_failure: unknown policy %q", c.Notifications.OnCreateFailure)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (or TASKHUB_JWT_SECRET)")
	}
	return nil
}

// Location returns the scheduler timezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
