// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/scamsentinel/internal/appcontext"
	"codeberg.org/oliverandrich/scamsentinel/internal/htmx"
	"codeberg.org/oliverandrich/scamsentinel/internal/i18n"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/validation"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

// currentUser returns the authenticated user, or nil.
func currentUser(c echo.Context) *models.User {
	if cc, ok := c.(*appcontext.Context); ok && cc.User != nil {
		return cc.User
	}
	return appcontext.UserFrom(c.Request().Context())
}

// isPartial reports whether an htmx request wants a fragment.
func isPartial(c echo.Context) bool {
	if cc, ok := c.(*appcontext.Context); ok && cc.Htmx != nil {
		return cc.Htmx.IsHtmx && !cc.Htmx.IsBoosted
	}
	return htmx.IsPartial(c.Request())
}

func viewerID(c echo.Context) int64 {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// redirectWithFlash sets a translated flash message and redirects.
func (h *Handlers) redirectWithFlash(c echo.Context, to, kind, messageID string) error {
	if h.Flash != nil {
		h.Flash.Set(c.Response(), kind, i18n.T(c.Request().Context(), messageID))
	}
	return htmx.Redirect(c, to)
}

// formValues copies the named form fields for re-rendering a form.
func formValues(c echo.Context, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = strings.TrimSpace(c.FormValue(n))
	}
	return out
}

// asValidation extracts field errors from err.
func asValidation(err error) (validation.Errors, bool) {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound)
	}
	return id, nil
}

func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// safeNext returns next if it is a local path, otherwise fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return next
}

func reportURL(id int64) string {
	return "/reports/" + strconv.FormatInt(id, 10)
}
