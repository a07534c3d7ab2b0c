// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/oliverandrich/scamsentinel/internal/htmx"
	"codeberg.org/oliverandrich/scamsentinel/internal/i18n"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/reports"
	"codeberg.org/oliverandrich/scamsentinel/internal/templates"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors as JSON under /api/ and as an error page
// everywhere else. Failed form submissions are redirected back with a
// generic flash message instead.
func (h *Handlers) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request_failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
	}

	message, detail := http.StatusText(code), ""
	var he *echo.HTTPError
	if errors.As(err, &he) && code < http.StatusInternalServerError {
		if m, ok := he.Message.(string); ok && m != "" && m != message {
			message, detail = m, m
		}
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		_ = c.JSON(code, map[string]string{"error": message})
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	if code >= http.StatusInternalServerError && c.Request().Method != http.MethodGet && h.Flash != nil {
		h.Flash.Set(c.Response(), flash.KindError, i18n.T(c.Request().Context(), "flash_error_generic"))
		if redirectErr := htmx.Redirect(c, refererPath(c.Request())); redirectErr == nil {
			return
		}
	}

	ctx := c.Request().Context()
	page := templates.Page("error", &templates.View{
		Data: templates.ErrorData{
			Code:    code,
			Title:   i18n.T(ctx, errorTitleID(code)),
			Message: detail,
		},
	})
	if renderErr := Render(c, code, page); renderErr != nil {
		slog.Error("failed to render error page", "error", renderErr)
		_ = c.String(code, message)
	}
}

// refererPath returns the local path of the page that submitted r, or "/".
func refererPath(r *http.Request) string {
	u, err := url.Parse(r.Referer())
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return "/"
	}
	return safeNext(u.RequestURI(), "/")
}

func statusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reports.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func errorTitleID(code int) string {
	switch code {
	case http.StatusNotFound:
		return "error_not_found"
	case http.StatusForbidden:
		return "error_forbidden"
	case http.StatusBadRequest:
		return "error_bad_request"
	case http.StatusTooManyRequests:
		return "error_too_many_requests"
	case http.StatusUnauthorized:
		return "error_unauthorized"
	default:
		return "error_internal"
	}
}
