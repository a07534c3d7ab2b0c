// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers.
package handlers

import (
	"context"
	"net/http"

	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/auth"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/email"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/news"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/reports"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/reputation"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/token"
	"codeberg.org/oliverandrich/scamsentinel/internal/templates"
	"github.com/labstack/echo/v4"
)

// HomeReports is the number of verified reports on the home page.
const HomeReports = 5

// ReputationChecker looks up a URL verdict.
type ReputationChecker interface {
	Check(ctx context.Context, rawURL string) (*reputation.Verdict, error)
}

// NewsSource returns recent scam news.
type NewsSource interface {
	Latest(ctx context.Context) ([]news.Article, error)
}

// ContactMailer forwards contact form messages.
type ContactMailer interface {
	SendContact(ctx context.Context, recipient string, msg email.ContactMessage) error
}

// Services are the collaborators of the handlers.
type Services struct { //nolint:govet // fieldalignment not critical
	Auth             *auth.Service
	Tokens           *token.Service
	Flash            *flash.Manager
	Reports          *reports.Service
	Reputation       ReputationChecker
	News             NewsSource
	Contact          ContactMailer
	ContactRecipient string
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo *repository.Repository
	Services
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, svc Services) *Handlers {
	return &Handlers{repo: repo, Services: svc}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.repo != nil {
		if err := h.repo.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Home renders the home page with the latest verified reports.
func (h *Handlers) Home(c echo.Context) error {
	latest, err := h.Reports.LatestVerified(c.Request().Context(), HomeReports)
	if err != nil {
		return err
	}
	return Render(c, http.StatusOK, templates.Page("home", &templates.View{
		Data: templates.HomeData{Reports: latest},
	}))
}

// Static renders a page without data.
func (h *Handlers) Static(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return Render(c, http.StatusOK, templates.Page(name, &templates.View{}))
	}
}
