package config

import (
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds bot credentials and the update delivery mode.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// OperatorIDs receive forwarded inquiries and may run operator-only commands.
	OperatorIDs []int64 `yaml:"operator_ids" envconfig:"TELEGRAM_OPERATOR_IDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL         string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen      string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port        int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// EmailProviderSMTP delivers inquiries through an SMTP relay.
	EmailProviderSMTP = "smtp"
	// EmailProviderSES delivers inquiries through Amazon SES.
	EmailProviderSES = "ses"
)

// SMTPConfig holds SMTP relay credentials.
type SMTPConfig struct {
	Host     string `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int    `yaml:"port" envconfig:"SMTP_PORT"`
	Username string `yaml:"username" envconfig:"SMTP_EMAIL_USER"`
	Password string `yaml:"password" envconfig:"SMTP_EMAIL_PASSWORD"`
}

// SESConfig selects the AWS region for SES; credentials come from the default AWS chain.
type SESConfig struct {
	Region string `yaml:"region" envconfig:"SES_REGION"`
}

// EmailConfig describes how inquiry emails leave the bot.
type EmailConfig struct {
	Provider      string     `yaml:"provider" envconfig:"EMAIL_PROVIDER"`
	From          string     `yaml:"from" envconfig:"EMAIL_FROM"`
	BCC           string     `yaml:"bcc" envconfig:"MY_BCC_EMAIL"`
	SubjectPrefix string     `yaml:"subject_prefix"`
	TempDir       string     `yaml:"temp_dir"`
	SMTP          SMTPConfig `yaml:"smtp"`
	SES           SESConfig  `yaml:"ses"`
}

// SessionConfig bounds how long an idle conversation is kept in memory.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// CatalogConfig points to optional message catalog overrides.
type CatalogConfig struct {
	Dir             string `yaml:"dir" envconfig:"CATALOG_DIR"`
	DefaultLanguage string `yaml:"default_language"`
}

// SenderConfig tunes the outbound Telegram dispatcher.
type SenderConfig struct {
	QueueSize  int `yaml:"queue_size"`
	Workers    int `yaml:"workers"`
	MaxRetries int `yaml:"max_retries"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// DatabaseConfig holds optional Postgres settings used for funnel statistics.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	Email    EmailConfig    `yaml:"email"`
	Session  SessionConfig  `yaml:"session"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Sender   SenderConfig   `yaml:"sender"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is tolerated so that container deployments can rely on env only.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			cfg.Webhook.Listen = "0.0.0.0"
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	for _, id := range cfg.Telegram.OperatorIDs {
		if id == 0 {
			return fmt.Errorf("telegram.operator_ids must not contain 0")
		}
	}

	if err := normalizeEmail(&cfg.Email); err != nil {
		return err
	}

	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 30 * time.Minute
	}
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = time.Minute
	}

	cfg.Catalog.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.Catalog.DefaultLanguage))
	if cfg.Catalog.DefaultLanguage == "" {
		cfg.Catalog.DefaultLanguage = "sr"
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required when database.enabled is true")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
	}
	return nil
}

func normalizeEmail(e *EmailConfig) error {
	p := strings.ToLower(strings.TrimSpace(e.Provider))
	if p == "" {
		p = EmailProviderSMTP
	}
	e.Provider = p

	if strings.TrimSpace(e.BCC) == "" {
		return fmt.Errorf("email.bcc (MY_BCC_EMAIL) is required")
	}
	if _, err := mail.ParseAddress(e.BCC); err != nil {
		return fmt.Errorf("email.bcc %q: %w", e.BCC, err)
	}

	switch p {
	case EmailProviderSMTP:
		if e.SMTP.Username == "" || e.SMTP.Password == "" {
			return fmt.Errorf("email.smtp.username and email.smtp.password are required for the smtp provider")
		}
		if e.SMTP.Host == "" {
			e.SMTP.Host = "smtp.gmail.com"
		}
		if e.SMTP.Port <= 0 {
			e.SMTP.Port = 587
		}
		if e.From == "" {
			e.From = e.SMTP.Username
		}
	case EmailProviderSES:
		if e.SES.Region == "" {
			return fmt.Errorf("email.ses.region is required for the ses provider")
		}
		if e.From == "" {
			return fmt.Errorf("email.from is required for the ses provider")
		}
	default:
		return fmt.Errorf("invalid email.provider %q; allowed: smtp, ses", e.Provider)
	}
	if _, err := mail.ParseAddress(e.From); err != nil {
		return fmt.Errorf("email.from %q: %w", e.From, err)
	}
	if e.SubjectPrefix == "" {
		e.SubjectPrefix = "[heatbot]"
	}
	return nil
}

// IsOperator reports whether the Telegram user id belongs to an operator.
func (c *Config) IsOperator(userID int64) bool {
	if c == nil {
		return false
	}
	for _, id := range c.Telegram.OperatorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CoreConfig returns c itself so *Config satisfies the runner's config carrier.
func (c *Config) CoreConfig() *Config { return c }
