package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Configuration struct {
	Server   ServerConfig
	Database DatabaseConfig
	DocuSign DocuSignConfig
	Mail     MailConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type DocuSignConfig struct {
	APIBaseURL     string
	AuthHost       string
	IntegrationKey string
	AccountID      string
	UserID         string
	PrivateKeyPath string
	ConnectSecret  string
	RequestTimeout time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type StorageConfig struct {
	UploadsDir string
	SignedDir  string
}

type LoggingConfig struct {
	Environment string
}

// Load reads the configuration from the environment, applying defaults
// for everything that is not security-sensitive.
func Load() *Configuration {
	return &Configuration{
		Server: ServerConfig{
			Port:         envOr("PORT", "5000"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 300 * time.Second,
		},
		DocuSign: DocuSignConfig{
			APIBaseURL:     envOr("DOCUSIGN_API_BASE_URL", "https://demo.docusign.net/restapi"),
			AuthHost:       envOr("DOCUSIGN_AUTH_HOST", "account-d.docusign.com"),
			IntegrationKey: os.Getenv("DOCUSIGN_INTEGRATION_KEY"),
			AccountID:      os.Getenv("DOCUSIGN_ACCOUNT_ID"),
			UserID:         os.Getenv("DOCUSIGN_USER_ID"),
			PrivateKeyPath: envOr("DOCUSIGN_PRIVATE_KEY_PATH", "./private.key"),
			ConnectSecret:  os.Getenv("DOCUSIGN_CONNECT_SECRET"),
			RequestTimeout: 30 * time.Second,
		},
		Mail: MailConfig{
			Host:     envOr("EMAIL_HOST", "smtp.gmail.com"),
			Port:     envIntOr("EMAIL_PORT", 587),
			Username: os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
			From:     envOr("EMAIL_FROM", os.Getenv("EMAIL_USER")),
		},
		Storage: StorageConfig{
			UploadsDir: envOr("UPLOADS_DIR", "uploads"),
			SignedDir:  envOr("SIGNED_DIR", "signed"),
		},
		Logging: LoggingConfig{
			Environment: envOr("APP_ENV", "development"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// LogConfig logs the effective configuration with secrets redacted.
func LogConfig(cfg *Configuration, logger *zap.Logger) {
	logger.Info("Application configuration",
		zap.String("port", cfg.Server.Port),
		zap.Duration("read_timeout", cfg.Server.ReadTimeout),
		zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		zap.String("docusign_api_base_url", cfg.DocuSign.APIBaseURL),
		zap.String("docusign_auth_host", cfg.DocuSign.AuthHost),
		zap.String("docusign_account_id", cfg.DocuSign.AccountID),
		zap.String("docusign_private_key_path", cfg.DocuSign.PrivateKeyPath),
		zap.String("email_host", cfg.Mail.Host),
		zap.Int("email_port", cfg.Mail.Port),
		zap.String("uploads_dir", cfg.Storage.UploadsDir),
		zap.String("signed_dir", cfg.Storage.SignedDir),
	)
}
