// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestShouldUseTLS(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		host     string
		expected bool
	}{
		{"off mode", "off", "example.com", false},
		{"acme mode", "acme", "localhost", true},
		{"manual mode", "manual", "localhost", true},
		{"auto mode with localhost", "auto", "localhost", false},
		{"auto mode with remote host", "auto", "example.com", true},
		{"empty mode with remote host", "", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldUseTLS(tt.mode, tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name: "localhost HTTP default port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 80},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost",
		},
		{
			name: "localhost HTTP custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 8080},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost:8080",
		},
		{
			name: "remote host with auto TLS",
			cfg: &Config{
				Server: ServerConfig{Host: "scamsentinel.example", Port: 443},
				TLS:    TLSConfig{Mode: "auto"},
			},
			expected: "https://scamsentinel.example",
		},
		{
			name: "manual TLS custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "scamsentinel.example", Port: 8443},
				TLS:    TLSConfig{Mode: "manual"},
			},
			expected: "https://scamsentinel.example:8443",
		},
		{
			name: "ACME mode forces port 443",
			cfg: &Config{
				Server: ServerConfig{Host: "scamsentinel.example", Port: 8080},
				TLS:    TLSConfig{Mode: "acme"},
			},
			expected: "https://scamsentinel.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func TestNormalizeDomains(t *testing.T) {
	got := normalizeDomains([]string{" Gmail.com ", "@example.org", ""})

	assert.Equal(t, []string{"gmail.com", "example.org"}, got)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Host: "localhost"},
			Database:   DatabaseConfig{Driver: "sqlite"},
			Media:      MediaConfig{Driver: "local"},
			Reputation: ReputationConfig{Attempts: 4},
		}
	}

	t.Run("defaults pass on localhost", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("unknown database driver", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Driver = "mysql"
		assert.ErrorContains(t, cfg.Validate(), "unknown database driver")
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		cfg := valid()
		cfg.Media.Driver = "s3"
		assert.ErrorContains(t, cfg.Validate(), "requires a bucket")
	})

	t.Run("missing JWT secret on public host", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Host = "scamsentinel.example"
		assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
	})

	t.Run("zero attempts", func(t *testing.T) {
		cfg := valid()
		cfg.Reputation.Attempts = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestFlags(t *testing.T) {
	flagNames := make(map[string]bool)
	for _, f := range Flags() {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{
		"host", "port", "base-url", "log-level", "database-driver", "database-dsn",
		"tls-mode", "session-cookie-name", "jwt-secret", "smtp-host",
		"media-driver", "reputation-api-key", "news-api-key", "rate-limit-rps",
	} {
		assert.True(t, flagNames[name], "should have %s flag", name)
	}
}

func TestNewFromCLI(t *testing.T) {
	var cfg *Config
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg = NewFromCLI(cmd)
			return nil
		},
	}

	require.NoError(t, app.Run(context.Background(), []string{"test"}))
	require.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "_flash", cfg.Session.CookieName)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 4, cfg.Reputation.Attempts)
	assert.Equal(t, time.Second, cfg.Reputation.PollInterval)
	assert.Equal(t, 5, cfg.Media.MaxImages)
	assert.Equal(t, "http://localhost:8080/uploads", cfg.Media.PublicBaseURL)
	assert.Equal(t, "scam", cfg.News.Query)
	assert.Equal(t, 3, cfg.News.LookbackDays)
	assert.NoError(t, cfg.Validate())
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	var cfg *Config
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg = NewFromCLI(cmd)
			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://scamsentinel.example",
		"--database-driver", "postgres",
		"--database-dsn", "postgres://localhost/scamsentinel",
		"--reputation-attempts", "2",
		"--registration-email-domains", "gmail.com,example.org",
	}
	require.NoError(t, app.Run(context.Background(), args))

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://scamsentinel.example", cfg.Server.BaseURL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/scamsentinel", cfg.Database.DSN)
	assert.Equal(t, 2, cfg.Reputation.Attempts)
	assert.Equal(t, []string{"gmail.com", "example.org"}, cfg.Registration.AllowedEmailDomains)
}
