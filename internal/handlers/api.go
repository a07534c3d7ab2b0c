// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/oliverandrich/scamsentinel/internal/services/reputation"
	"github.com/labstack/echo/v4"
)

const maxCheckBody = 8 << 10

// checkRequest is the object form of the /api/check body.
type checkRequest struct {
	URL string `json:"url"`
}

// CheckURL returns the reputation verdict for a URL. The body is either a
// bare JSON string or {"url": "..."}.
func (h *Handlers) CheckURL(c echo.Context) error {
	raw, err := readCheckURL(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	target := reputation.Normalize(raw)
	if target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "URL is required")
	}
	if u, err := url.Parse(target); err != nil || u.Hostname() == "" || strings.ContainsAny(u.Hostname(), " \t") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid URL")
	}

	verdict, err := h.Reputation.Check(c.Request().Context(), target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, verdict)
}

func readCheckURL(body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxCheckBody))
	if err != nil {
		return "", err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var req checkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	return req.URL, nil
}
