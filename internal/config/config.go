package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Backend struct {
		BaseURL         string `yaml:"base_url"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"backend"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Phone struct {
		CountryPrefix    string `yaml:"country_prefix"`
		SubscriberDigits int    `yaml:"subscriber_digits"`
	} `yaml:"phone"`

	Session struct {
		IdleTimeoutMinutes int `yaml:"idle_timeout_minutes"`
	} `yaml:"session"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Reminders struct {
		Enabled bool `yaml:"enabled"`
		Hour    int  `yaml:"hour"` // local hour of day for next-day reminders
	} `yaml:"reminders"`

	Admins []int64 `yaml:"admins"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/barberia.db"
	}
	if cfg.Phone.CountryPrefix == "" {
		cfg.Phone.CountryPrefix = "+593"
	}
	if cfg.Phone.SubscriberDigits <= 0 {
		cfg.Phone.SubscriberDigits = 9
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 10
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "data/backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Reminders.Hour <= 0 || cfg.Reminders.Hour > 23 {
		cfg.Reminders.Hour = 9
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) SessionIdleTimeout() time.Duration {
	if c.Session.IdleTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Session.IdleTimeoutMinutes) * time.Minute
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
