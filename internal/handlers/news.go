// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/scamsentinel/internal/templates"
	"github.com/labstack/echo/v4"
)

// NewsPage renders recent scam news. Upstream failures show a notice instead
// of an error page.
func (h *Handlers) NewsPage(c echo.Context) error {
	data := templates.NewsData{}

	articles, err := h.News.Latest(c.Request().Context())
	if err != nil {
		slog.Warn("news_unavailable", "error", err)
		data.Unavailable = true
	} else {
		data.Articles = articles
	}

	return Render(c, http.StatusOK, templates.Page("news", &templates.View{Data: data}))
}
