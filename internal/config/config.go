package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Message source backends
const (
	SourceDatabase = "database"
	SourceIMAP     = "imap"
)

// Retention policy units
const (
	RetentionDays   = "d"
	RetentionWeeks  = "w"
	RetentionMonths = "m"
)

// Config holds all configuration for the application. It is constructed
// once at process start and passed to each component; nothing mutates it
// afterwards.
type Config struct {
	// Database
	DatabaseURL string

	// Server ports
	APIPort  int
	SMTPPort int

	// Public base URL used to build attachment links
	BaseURL string

	// Message source backend: "database" or "imap"
	MessageSource string

	// IMAP backend (only used when MessageSource == "imap")
	IMAPHost        string
	IMAPPort        int
	IMAPUsername    string
	IMAPPassword    string
	IMAPUseTLS      bool
	IMAPDialTimeout time.Duration

	// Mailbox
	MailboxDomain  string
	CreateFromURL  bool
	FetchLimit     int
	CCCheckEnabled bool

	// Rendering
	LinkMaskingEnabled   bool
	LinkMaskPrefix       string
	BlockedSenderDomains []string

	// Retention
	RetentionUnit   string
	RetentionValue  int
	SweepInterval   time.Duration
	SweepBatchLimit int
	SweepSecret     string

	// Audit log
	AuditLogEnabled bool
	AuditLogPath    string

	// Storage
	AttachmentStoragePath string

	// Security
	AdminToken     string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	var err error
	if cfg.APIPort, err = getEnvInt("API_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getEnvInt("SMTP_PORT", 2525); err != nil {
		return nil, err
	}

	cfg.BaseURL = getEnvOrDefault("BASE_URL", "http://localhost:8080")
	cfg.MessageSource = getEnvOrDefault("MESSAGE_SOURCE", SourceDatabase)

	cfg.IMAPHost = os.Getenv("IMAP_HOST")
	if cfg.IMAPPort, err = getEnvInt("IMAP_PORT", 993); err != nil {
		return nil, err
	}
	cfg.IMAPUsername = os.Getenv("IMAP_USERNAME")
	cfg.IMAPPassword = os.Getenv("IMAP_PASSWORD")
	cfg.IMAPUseTLS = getEnvBool("IMAP_USE_TLS", true)
	cfg.IMAPDialTimeout = getEnvDuration("IMAP_DIAL_TIMEOUT", 15*time.Second)

	cfg.MailboxDomain = getEnvOrDefault("MAILBOX_DOMAIN", "localhost")
	cfg.CreateFromURL = getEnvBool("ENABLE_CREATE_FROM_URL", true)
	if cfg.FetchLimit, err = getEnvInt("FETCH_MESSAGES_LIMIT", 25); err != nil {
		return nil, err
	}
	cfg.CCCheckEnabled = getEnvBool("ENABLE_CC_CHECK", false)

	cfg.LinkMaskingEnabled = getEnvBool("ENABLE_LINK_MASKING", true)
	cfg.LinkMaskPrefix = getEnvOrDefault("LINK_MASK_PREFIX", "https://anon.ws/?")
	if blocked := os.Getenv("BLOCKED_SENDER_DOMAINS"); blocked != "" {
		for _, d := range strings.Split(blocked, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				cfg.BlockedSenderDomains = append(cfg.BlockedSenderDomains, d)
			}
		}
	}

	cfg.RetentionUnit = getEnvOrDefault("RETENTION_UNIT", RetentionDays)
	if cfg.RetentionValue, err = getEnvInt("RETENTION_VALUE", 1); err != nil {
		return nil, err
	}
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", time.Hour)
	if cfg.SweepBatchLimit, err = getEnvInt("SWEEP_BATCH_LIMIT", 50); err != nil {
		return nil, err
	}
	cfg.SweepSecret = os.Getenv("SWEEP_SECRET")

	cfg.AuditLogEnabled = getEnvBool("ENABLE_AUDIT_LOG", true)
	cfg.AuditLogPath = getEnvOrDefault("AUDIT_LOG_PATH", "./storage/logs/tossmail.csv")

	cfg.AttachmentStoragePath = getEnvOrDefault("ATTACHMENT_STORAGE_PATH", "./tmp")

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = getEnvOrDefault("APP_ENV", "development")

	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.MessageSource {
	case SourceDatabase:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the database message source")
		}
	case SourceIMAP:
		if c.IMAPHost == "" {
			return fmt.Errorf("IMAP_HOST is required for the imap message source")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required (audit entries are stored in the database)")
		}
	default:
		return fmt.Errorf("MESSAGE_SOURCE must be %q or %q, got %q", SourceDatabase, SourceIMAP, c.MessageSource)
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}

	switch c.RetentionUnit {
	case RetentionDays, RetentionWeeks, RetentionMonths:
	default:
		return fmt.Errorf("RETENTION_UNIT must be d, w or m, got %q", c.RetentionUnit)
	}
	if c.RetentionValue <= 0 {
		return fmt.Errorf("RETENTION_VALUE must be positive")
	}

	if c.AttachmentStoragePath == "" {
		return fmt.Errorf("ATTACHMENT_STORAGE_PATH cannot be empty")
	}

	if c.AppEnv == "production" && c.SweepSecret == "" {
		return fmt.Errorf("SWEEP_SECRET is required in production")
	}

	return nil
}

// RetentionCutoff returns the timestamp before which messages are eligible
// for deletion, per the configured retention policy.
func (c *Config) RetentionCutoff(now time.Time) time.Time {
	switch c.RetentionUnit {
	case RetentionWeeks:
		return now.AddDate(0, 0, -7*c.RetentionValue)
	case RetentionMonths:
		return now.AddDate(0, -c.RetentionValue, 0)
	default:
		return now.AddDate(0, 0, -c.RetentionValue)
	}
}

// IsDomainBlocked reports whether the given sender domain is blocklisted.
func (c *Config) IsDomainBlocked(domain string) bool {
	domain = strings.ToLower(domain)
	for _, d := range c.BlockedSenderDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Int("smtp_port", c.SMTPPort),
		slog.String("message_source", c.MessageSource),
		slog.String("storage_path", c.AttachmentStoragePath),
		slog.String("retention", fmt.Sprintf("%d%s", c.RetentionValue, c.RetentionUnit)),
		slog.Duration("sweep_interval", c.SweepInterval),
		slog.Int("sweep_batch_limit", c.SweepBatchLimit),
		slog.Bool("link_masking", c.LinkMaskingEnabled),
		slog.Bool("cc_check", c.CCCheckEnabled),
		slog.Bool("audit_log", c.AuditLogEnabled),
		slog.Int("blocked_domains", len(c.BlockedSenderDomains)),
		slog.String("app_env", c.AppEnv),
		slog.Bool("sweep_secret_set", c.SweepSecret != ""),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
