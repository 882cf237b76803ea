package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from the environment
// (optionally seeded from a .env file).
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// Browser session options.
	Headless              bool          `mapstructure:"headless"`
	ChromeBin             string        `mapstructure:"chrome_bin"`
	BrowserOpTimeoutSecs  int64         `mapstructure:"browser_op_timeout_seconds"`
	BrowserOpTimeout      time.Duration `mapstructure:"-"`
	BrowserNavigateWaitMs int           `mapstructure:"browser_navigate_wait_ms"`

	// Source profiles and batch IO.
	ProfilesDir string `mapstructure:"profiles_dir"`
	Profile     string `mapstructure:"profile"` // restrict a run to one profile
	TasksCSV    string `mapstructure:"tasks_csv"`
	OutputDir   string `mapstructure:"output_dir"`

	// Pause between tasks, to avoid hammering the source site.
	TaskPauseMs int `mapstructure:"task_pause_ms"`

	// Dedup store selection.
	StoreType        string `mapstructure:"store_type"` // postgres | bolt | none
	BoltPath         string `mapstructure:"bolt_path"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     string `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// recordsd scheduling.
	RefreshIntervalSecs int64         `mapstructure:"refresh_interval_seconds"`
	RefreshInterval     time.Duration `mapstructure:"-"`
	KeepAliveURL        string        `mapstructure:"keepalive_url"`
	KeepAliveLocator    string        `mapstructure:"keepalive_locator"`
	KeepAliveMinSecs    int64         `mapstructure:"keepalive_min_seconds"`
	KeepAliveMaxSecs    int64         `mapstructure:"keepalive_max_seconds"`

	// Notification sinks. Empty settings disable the corresponding sink.
	SMTPHost   string `mapstructure:"smtp_host"`
	SMTPPort   string `mapstructure:"smtp_port"`
	SMTPUser   string `mapstructure:"smtp_user"`
	SMTPPass   string `mapstructure:"smtp_password"`
	MailFrom   string `mapstructure:"mail_from"`
	MailTo     string `mapstructure:"mail_to"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// Load reads configuration from environment variables, seeded from .env when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("log_level", "info")

	v.SetDefault("headless", true)
	v.SetDefault("chrome_bin", "")
	v.SetDefault("browser_op_timeout_seconds", 30)
	v.SetDefault("browser_navigate_wait_ms", 1000)

	v.SetDefault("profiles_dir", "./profiles")
	v.SetDefault("profile", "")
	v.SetDefault("tasks_csv", "./data/tax_sales.csv")
	v.SetDefault("output_dir", "./output")

	v.SetDefault("task_pause_ms", 1000)

	v.SetDefault("store_type", "none")
	v.SetDefault("bolt_path", "./data/records.db")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "scraper")
	v.SetDefault("postgres_password", "scraper123")
	v.SetDefault("postgres_db", "records_db")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("refresh_interval_seconds", 3600)
	v.SetDefault("keepalive_url", "")
	v.SetDefault("keepalive_locator", `input[type="password"]`)
	v.SetDefault("keepalive_min_seconds", 60)
	v.SetDefault("keepalive_max_seconds", 180)

	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", "587")
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("mail_from", "")
	v.SetDefault("mail_to", "")
	v.SetDefault("webhook_url", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.BrowserOpTimeout = time.Duration(cfg.BrowserOpTimeoutSecs) * time.Second
	cfg.RefreshInterval = time.Duration(cfg.RefreshIntervalSecs) * time.Second

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreType {
	case "postgres", "bolt", "none":
	default:
		return fmt.Errorf("invalid store_type %q (want postgres, bolt or none)", c.StoreType)
	}
	if c.BrowserOpTimeoutSecs <= 0 {
		return fmt.Errorf("invalid browser_op_timeout_seconds (must be positive)")
	}
	if c.RefreshIntervalSecs <= 0 {
		return fmt.Errorf("invalid refresh_interval_seconds (must be positive)")
	}
	if c.KeepAliveMinSecs <= 0 || c.KeepAliveMaxSecs < c.KeepAliveMinSecs {
		return fmt.Errorf("invalid keepalive interval bounds")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// TaskPause returns the configured inter-task pause.
func (c *Config) TaskPause() time.Duration {
	return time.Duration(c.TaskPauseMs) * time.Millisecond
}
