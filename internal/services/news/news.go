// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package news fetches recent scam headlines from NewsAPI.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("API key not configured")

// Article is one headline.
type Article struct { //nolint:govet // fieldalignment not critical
	Title       string
	Author      string
	Description string
	URL         string
	ImageURL    string
	SourceName  string
	PublishedAt time.Time
}

type response struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string    `json:"author"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		URLToImage  string    `json:"urlToImage"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// Client queries the NewsAPI "everything" endpoint.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	query    string
	lookback int
	now      func() time.Time
}

// New creates a client. A nil httpClient uses a client with a 10 second timeout.
func New(cfg *config.NewsConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	query := cfg.Query
	if query == "" {
		query = "scam"
	}
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = 3
	}
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		query:    query,
		lookback: lookback,
		now:      time.Now,
	}
}

// Latest returns English articles from the lookback window, newest first.
func (c *Client) Latest(ctx context.Context) ([]Article, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("q", c.query)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("from", c.now().UTC().AddDate(0, 0, -c.lookback).Format(time.DateOnly))
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Status == "error" {
		msg := body.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("news api: %s", msg)
	}

	articles := make([]Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, Article{
			Title:       a.Title,
			Author:      a.Author,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}
