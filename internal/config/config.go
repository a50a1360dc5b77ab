// internal/config/config.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Database DatabaseConfig
	Mail     MailConfig

	JWTSecret string `env:"JWT_SECRET"`
	OrgName   string `env:"ORG_NAME" envDefault:"Acme CRM"`

	// DispatchWorkers is the number of concurrent senders per campaign run.
	DispatchWorkers int `env:"DISPATCH_WORKERS" envDefault:"1"`

	AMQPURL       string `env:"AMQP_URL"`
	ActivityQueue string `env:"ACTIVITY_QUEUE" envDefault:"activity_logs"`
}

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Name     string `env:"DB_NAME" envDefault:"crm"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN prefers DATABASE_URL and falls back to the discrete DB_* variables.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

type MailConfig struct {
	Driver    string `env:"MAIL_DRIVER" envDefault:"smtp"`
	SMTPHost  string `env:"SMTP_HOST"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser  string `env:"SMTP_USER"`
	SMTPPass  string `env:"SMTP_PASS"`
	SMTPTLS   bool   `env:"SMTP_SECURE" envDefault:"true"`
	FromName  string `env:"SMTP_FROM_NAME" envDefault:"CRM"`
	FromEmail string `env:"SMTP_FROM_EMAIL" envDefault:"noreply@example.com"`
	AWSRegion string `env:"AWS_REGION" envDefault:"us-east-1"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DispatchWorkers < 1 {
		return fmt.Errorf("DISPATCH_WORKERS must be at least 1, got %d", c.DispatchWorkers)
	}
	switch c.Mail.Driver {
	case "smtp", "ses":
	default:
		return fmt.Errorf("MAIL_DRIVER must be smtp or ses, got %q", c.Mail.Driver)
	}
	if c.Mail.Driver == "smtp" && c.Mail.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when MAIL_DRIVER=smtp")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
