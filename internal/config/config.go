package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string         `mapstructure:"database_url"`
	ServerPort  string         `mapstructure:"server_port"`
	Email       EmailConfig    `mapstructure:"email"`
	Delivery    DeliveryConfig `mapstructure:"delivery"`
	Reminders   ReminderConfig `mapstructure:"reminders"`
	Followup    FollowupConfig `mapstructure:"followup"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type DeliveryConfig struct {
	// Interval is a cron spec for the dispatch trigger, e.g. "@every 3m".
	Interval       string        `mapstructure:"interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	// MaxAttempts caps gateway attempts within a single cycle. Failed items
	// stay pending and are retried indefinitely on later cycles regardless.
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type ReminderConfig struct {
	Cron     string `mapstructure:"cron"`
	LeadDays int    `mapstructure:"lead_days"`
}

type FollowupConfig struct {
	Cron           string `mapstructure:"cron"`
	StaleAfterDays int    `mapstructure:"stale_after_days"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.DatabaseURL == "" {
		log.Fatal("database_url must be set in the config file")
	}
	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}

	if config.Delivery.Interval == "" {
		config.Delivery.Interval = "@every 3m"
	}
	if config.Delivery.BatchSize <= 0 {
		config.Delivery.BatchSize = 50
	}
	if config.Delivery.GatewayTimeout <= 0 {
		config.Delivery.GatewayTimeout = 15 * time.Second
	}
	if config.Delivery.MaxAttempts <= 0 {
		config.Delivery.MaxAttempts = 1
	}
	if config.Delivery.RetryBackoff <= 0 {
		config.Delivery.RetryBackoff = 2 * time.Second
	}

	if config.Reminders.Cron == "" {
		config.Reminders.Cron = "0 0 6 * * *" // daily at 06:00
	}
	if config.Reminders.LeadDays <= 0 {
		config.Reminders.LeadDays = 1
	}

	if config.Followup.Cron == "" {
		config.Followup.Cron = "0 0 7 * * 1" // Mondays at 07:00
	}
	if config.Followup.StaleAfterDays <= 0 {
		config.Followup.StaleAfterDays = 30
	}

	return &config
}
