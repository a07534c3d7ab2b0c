// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"time"

	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   30,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
	}

	flags = append(flags, DatabaseFlags()...)
	flags = append(flags, tlsFlags()...)
	flags = append(flags, sessionFlags()...)
	flags = append(flags, jwtFlags()...)
	flags = append(flags, smtpFlags()...)
	flags = append(flags, mediaFlags()...)
	flags = append(flags, integrationFlags()...)

	return flags
}

// DatabaseFlags are shared by every subcommand that opens the database.
func DatabaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-driver",
			Value:   "sqlite",
			Usage:   "Database driver (sqlite, postgres)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DRIVER"), toml.TOML("database.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/scamsentinel.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
	}
}

func tlsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, manual, off)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for ACME certificates",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
	}
}

func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_flash",
			Usage:   "Flash cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   300,
			Usage:   "Flash cookie max age in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_MAX_AGE"), toml.TOML("session.max_age", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Cookie hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_HASH_KEY"), toml.TOML("session.hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Cookie block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_BLOCK_KEY"), toml.TOML("session.block_key", configFile)),
		},
	}
}

func jwtFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HMAC secret for access tokens (auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("jwt.secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-issuer",
			Value:   "scamsentinel",
			Usage:   "Access token issuer",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ISSUER"), toml.TOML("jwt.issuer", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-audience",
			Value:   "scamsentinel-web",
			Usage:   "Access token audience",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_AUDIENCE"), toml.TOML("jwt.audience", configFile)),
		},
		&cli.DurationFlag{
			Name:    "jwt-access-ttl",
			Value:   time.Hour,
			Usage:   "Access token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ACCESS_TTL"), toml.TOML("jwt.access_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "jwt-refresh-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Refresh token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_REFRESH_TTL"), toml.TOML("jwt.refresh_ttl", configFile)),
		},
	}
}

func smtpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP relay host (codes are logged when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP relay port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "no-reply@scamsentinel.local",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "ScamSentinel",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "registration-email-domains",
			Usage:   "Restrict registration to these email domains",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REGISTRATION_EMAIL_DOMAINS"), toml.TOML("registration.allowed_email_domains", configFile)),
		},
		&cli.StringFlag{
			Name:    "contact-recipient",
			Usage:   "Inbox for contact form messages",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_RECIPIENT"), toml.TOML("contact.recipient", configFile)),
		},
	}
}

func mediaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "media-driver",
			Value:   "local",
			Usage:   "Evidence storage driver (local, s3)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_DRIVER"), toml.TOML("media.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-local-dir",
			Value:   "./data/uploads",
			Usage:   "Directory for locally stored evidence",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_LOCAL_DIR"), toml.TOML("media.local_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-public-base-url",
			Usage:   "Public URL prefix for stored evidence",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_PUBLIC_BASE_URL"), toml.TOML("media.public_base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-s3-bucket",
			Usage:   "S3 bucket",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_S3_BUCKET"), toml.TOML("media.s3_bucket", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-s3-region",
			Value:   "us-east-1",
			Usage:   "S3 region",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_S3_REGION"), toml.TOML("media.s3_region", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-s3-endpoint",
			Usage:   "S3 endpoint for compatible stores such as MinIO",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_S3_ENDPOINT"), toml.TOML("media.s3_endpoint", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-s3-access-key",
			Usage:   "S3 access key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_S3_ACCESS_KEY"), toml.TOML("media.s3_access_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-s3-secret-key",
			Usage:   "S3 secret key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_S3_SECRET_KEY"), toml.TOML("media.s3_secret_key", configFile)),
		},
		&cli.IntFlag{
			Name:    "media-max-images",
			Value:   5,
			Usage:   "Maximum evidence images per report",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_MAX_IMAGES"), toml.TOML("media.max_images", configFile)),
		},
		&cli.IntFlag{
			Name:    "media-max-image-size",
			Value:   5 << 20,
			Usage:   "Maximum evidence image size in bytes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_MAX_IMAGE_SIZE"), toml.TOML("media.max_image_size", configFile)),
		},
	}
}

func integrationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "reputation-api-key",
			Usage:   "VirusTotal API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REPUTATION_API_KEY"), toml.TOML("reputation.api_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "reputation-base-url",
			Value:   "https://www.virustotal.com/api/v3",
			Usage:   "VirusTotal API base URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REPUTATION_BASE_URL"), toml.TOML("reputation.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "reputation-attempts",
			Value:   4,
			Usage:   "Report polling attempts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REPUTATION_ATTEMPTS"), toml.TOML("reputation.attempts", configFile)),
		},
		&cli.DurationFlag{
			Name:    "reputation-poll-interval",
			Value:   time.Second,
			Usage:   "Delay between report polls",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REPUTATION_POLL_INTERVAL"), toml.TOML("reputation.poll_interval", configFile)),
		},
		&cli.StringFlag{
			Name:    "news-api-key",
			Usage:   "NewsAPI key (news page is empty without it)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("NEWS_API_KEY"), toml.TOML("news.api_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "news-base-url",
			Value:   "https://newsapi.org/v2",
			Usage:   "NewsAPI base URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("NEWS_BASE_URL"), toml.TOML("news.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "news-query",
			Value:   "scam",
			Usage:   "News search query",
			Sources: cli.NewValueSourceChain(cli.EnvVar("NEWS_QUERY"), toml.TOML("news.query", configFile)),
		},
		&cli.IntFlag{
			Name:    "news-lookback-days",
			Value:   3,
			Usage:   "How many days of news to show",
			Sources: cli.NewValueSourceChain(cli.EnvVar("NEWS_LOOKBACK_DAYS"), toml.TOML("news.lookback_days", configFile)),
		},
		&cli.FloatFlag{
			Name:    "rate-limit-rps",
			Value:   2,
			Usage:   "Requests per second per client on login and the check API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_LIMIT_RPS"), toml.TOML("rate_limit.rps", configFile)),
		},
		&cli.IntFlag{
			Name:    "rate-limit-burst",
			Value:   10,
			Usage:   "Burst size for rate limited routes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_LIMIT_BURST"), toml.TOML("rate_limit.burst", configFile)),
		},
	}
}
