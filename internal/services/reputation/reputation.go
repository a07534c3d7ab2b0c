// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reputation checks URLs against the VirusTotal v3 API.
package reputation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/metrics"
	"github.com/sethvargo/go-retry"
)

// ErrEmptyURL is returned when there is nothing to check.
var ErrEmptyURL = errors.New("url is required")

// errMalformed marks a response body that is not the expected JSON.
var errMalformed = errors.New("malformed response")

// Status is the outcome of a check.
type Status string

const (
	StatusFlagged Status = "flagged"
	StatusClear   Status = "clear"
	StatusUnknown Status = "unknown"
)

// Verdict messages.
const (
	MessageUnavailable = "❌ Could not retrieve VirusTotal report."
	MessageMalformed   = "❌ Failed to parse VirusTotal response."
	MessageClear       = "✅ Safe: no engines flagged this URL."
	messageFlagged     = "⚠️ ScamSentinel flagged this site (%d malicious, %d suspicious)."
)

const maxBodySize = 1 << 20

// Stats are the engine counts of the last analysis.
type Stats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
}

// Verdict is the answer returned to the browser extension.
type Verdict struct {
	IsFraud bool   `json:"isFraud"`
	Message string `json:"message"`
	Status  Status `json:"status"`
	Stats   *Stats `json:"stats"`
}

// Client talks to VirusTotal.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	attempts int
	interval time.Duration
}

// New creates a client. A nil httpClient uses a client with a 10 second timeout.
func New(cfg *config.ReputationConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		attempts: max(cfg.Attempts, 1),
		interval: interval,
	}
}

// Normalize trims the URL and prepends http:// when no scheme is given.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	return raw
}

// URLID is the VirusTotal identifier of a URL: unpadded base64url.
func URLID(u string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(u))
}

// Check submits the URL for analysis and polls for the report. Only an
// empty URL or a cancelled context produce an error; every other failure
// yields an unknown verdict.
func (c *Client) Check(ctx context.Context, rawURL string) (*Verdict, error) {
	target := Normalize(rawURL)
	if target == "" {
		return nil, ErrEmptyURL
	}

	c.submit(ctx, target)

	stats, err := c.poll(ctx, URLID(target))

	var v *Verdict
	switch {
	case err == nil:
		v = verdictFromStats(stats)
	case errors.Is(err, errMalformed):
		v = &Verdict{Message: MessageMalformed, Status: StatusUnknown}
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		slog.Debug("reputation_unavailable", "url", target, "error", err)
		v = &Verdict{Message: MessageUnavailable, Status: StatusUnknown}
	}

	metrics.ReputationChecksTotal.WithLabelValues(string(v.Status)).Inc()
	slog.Info("reputation_check", "url", target, "status", v.Status)
	return v, nil
}

// submit asks for a fresh analysis. Failures are ignored since an older
// report may still be available.
func (c *Client) submit(ctx context.Context, target string) {
	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		slog.Debug("reputation_submit_failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("reputation_submit_failed", "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode >= 300 {
		slog.Debug("reputation_submit_failed", "status", resp.StatusCode)
	}
}

// poll fetches the URL report until it carries analysis stats, sleeping a
// fixed interval between attempts and never after the last one.
func (c *Client) poll(ctx context.Context, id string) (*Stats, error) {
	backoff := retry.WithMaxRetries(uint64(c.attempts-1), retry.NewConstant(c.interval))

	var stats *Stats
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := c.fetch(ctx, id)
		if err != nil {
			if errors.Is(err, errMalformed) {
				return err
			}
			return retry.RetryableError(err)
		}
		stats = s
		return nil
	})
	return stats, err
}

type urlReport struct {
	Data *struct {
		Attributes *struct {
			LastAnalysisStats json.RawMessage `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

var errNoStats = errors.New("report has no analysis stats yet")

func (c *Client) fetch(ctx context.Context, id string) (*Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/urls/"+id, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty body with status %d", resp.StatusCode)
	}

	var report urlReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	if report.Data == nil || report.Data.Attributes == nil ||
		len(report.Data.Attributes.LastAnalysisStats) == 0 ||
		string(report.Data.Attributes.LastAnalysisStats) == "null" {
		return nil, errNoStats
	}

	var stats Stats
	if err := json.Unmarshal(report.Data.Attributes.LastAnalysisStats, &stats); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return &stats, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func verdictFromStats(s *Stats) *Verdict {
	if s.Malicious+s.Suspicious > 0 {
		return &Verdict{
			IsFraud: true,
			Message: fmt.Sprintf(messageFlagged, s.Malicious, s.Suspicious),
			Status:  StatusFlagged,
			Stats:   s,
		}
	}
	return &Verdict{
		Message: MessageClear,
		Status:  StatusClear,
		Stats:   s,
	}
}
