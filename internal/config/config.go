// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server       ServerConfig
	Log          LogConfig
	Database     DatabaseConfig
	TLS          TLSConfig
	Session      SessionConfig
	JWT          JWTConfig
	SMTP         SMTPConfig
	Registration RegistrationConfig
	Media        MediaConfig
	Reputation   ReputationConfig
	News         NewsConfig
	Contact      ContactConfig
	RateLimit    RateLimitConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, manual, off
	CertDir  string // ACME certificate cache
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	Driver string // sqlite, postgres
	DSN    string
}

// SessionConfig configures the signed flash cookie.
type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Flash cookie name
	MaxAge     int    // Flash max age in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
}

type JWTConfig struct { //nolint:govet // fieldalignment not critical
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Enabled reports whether an SMTP relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type RegistrationConfig struct {
	AllowedEmailDomains []string // empty allows every domain
}

type MediaConfig struct { //nolint:govet // fieldalignment not critical
	Driver        string // local, s3
	LocalDir      string
	PublicBaseURL string // prefix for stored object URLs
	S3Bucket      string
	S3Region      string
	S3Endpoint    string // for MinIO and other S3-compatible stores
	S3AccessKey   string
	S3SecretKey   string
	MaxImages     int
	MaxImageSize  int64 // in bytes
}

type ReputationConfig struct { //nolint:govet // fieldalignment not critical
	APIKey       string
	BaseURL      string
	Attempts     int
	PollInterval time.Duration
}

type NewsConfig struct { //nolint:govet // fieldalignment not critical
	APIKey       string
	BaseURL      string
	Query        string
	LookbackDays int
}

type ContactConfig struct {
	Recipient string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			Driver: cmd.String("database-driver"),
			DSN:    cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
		JWT: JWTConfig{
			Secret:     cmd.String("jwt-secret"),
			Issuer:     cmd.String("jwt-issuer"),
			Audience:   cmd.String("jwt-audience"),
			AccessTTL:  cmd.Duration("jwt-access-ttl"),
			RefreshTTL: cmd.Duration("jwt-refresh-ttl"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Registration: RegistrationConfig{
			AllowedEmailDomains: normalizeDomains(cmd.StringSlice("registration-email-domains")),
		},
		Media: MediaConfig{
			Driver:        cmd.String("media-driver"),
			LocalDir:      cmd.String("media-local-dir"),
			PublicBaseURL: cmd.String("media-public-base-url"),
			S3Bucket:      cmd.String("media-s3-bucket"),
			S3Region:      cmd.String("media-s3-region"),
			S3Endpoint:    cmd.String("media-s3-endpoint"),
			S3AccessKey:   cmd.String("media-s3-access-key"),
			S3SecretKey:   cmd.String("media-s3-secret-key"),
			MaxImages:     int(cmd.Int("media-max-images")),
			MaxImageSize:  int64(cmd.Int("media-max-image-size")),
		},
		Reputation: ReputationConfig{
			APIKey:       cmd.String("reputation-api-key"),
			BaseURL:      cmd.String("reputation-base-url"),
			Attempts:     int(cmd.Int("reputation-attempts")),
			PollInterval: cmd.Duration("reputation-poll-interval"),
		},
		News: NewsConfig{
			APIKey:       cmd.String("news-api-key"),
			BaseURL:      cmd.String("news-base-url"),
			Query:        cmd.String("news-query"),
			LookbackDays: int(cmd.Int("news-lookback-days")),
		},
		Contact: ContactConfig{
			Recipient: cmd.String("contact-recipient"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: cmd.Float("rate-limit-rps"),
			Burst:             int(cmd.Int("rate-limit-burst")),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	if cfg.Media.Driver == "local" && cfg.Media.PublicBaseURL == "" {
		cfg.Media.PublicBaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/") + "/uploads"
	}

	return cfg
}

// Validate checks settings that cannot be defaulted safely.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	switch c.Media.Driver {
	case "local":
	case "s3":
		if c.Media.S3Bucket == "" {
			errs = append(errs, errors.New("media driver s3 requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media driver %q", c.Media.Driver))
	}

	if c.JWT.Secret == "" && !IsLocalhost(c.Server.Host) {
		errs = append(errs, errors.New("JWT_SECRET is required outside localhost"))
	}

	if c.Reputation.Attempts < 1 {
		errs = append(errs, errors.New("reputation attempts must be at least 1"))
	}

	return errors.Join(errs...)
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	useTLS := shouldUseTLS(mode, host)

	scheme := "http"
	if useTLS {
		scheme = "https"
	}

	// ACME mode always uses port 443
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "acme", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}
