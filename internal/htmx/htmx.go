// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package htmx provides types and helpers for htmx integration.
package htmx

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Header constants for htmx request headers.
const (
	HeaderRequest    = "HX-Request"
	HeaderBoosted    = "HX-Boosted"
	HeaderCurrentURL = "HX-Current-URL"
	HeaderTarget     = "HX-Target"
	HeaderTrigger    = "HX-Trigger"
)

// Header constants for htmx response headers.
const (
	HeaderRedirect = "HX-Redirect"
)

// Request contains information about an htmx request.
type Request struct { //nolint:govet // fieldalignment not critical
	// IsHtmx is true if this is an htmx request (HX-Request header is "true").
	IsHtmx bool

	// IsBoosted is true if this is a boosted request (HX-Boosted header is "true").
	IsBoosted bool

	// CurrentURL is the current URL of the browser (HX-Current-URL header).
	CurrentURL string

	// Target is the ID of the target element (HX-Target header).
	Target string

	// Trigger is the ID of the triggered element (HX-Trigger header).
	Trigger string
}

// ParseRequest extracts htmx information from request headers.
func ParseRequest(r *http.Request) *Request {
	return &Request{
		IsHtmx:     r.Header.Get(HeaderRequest) == "true",
		IsBoosted:  r.Header.Get(HeaderBoosted) == "true",
		CurrentURL: r.Header.Get(HeaderCurrentURL),
		Target:     r.Header.Get(HeaderTarget),
		Trigger:    r.Header.Get(HeaderTrigger),
	}
}

// IsPartial reports whether the request wants a fragment rather than a full
// page. Boosted requests get full pages.
func IsPartial(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == "true" && r.Header.Get(HeaderBoosted) != "true"
}

// Redirect sends the client to url. htmx requests get an HX-Redirect header
// so the whole page navigates; other requests get a 303.
func Redirect(c echo.Context, url string) error {
	if c.Request().Header.Get(HeaderRequest) == "true" {
		c.Response().Header().Set(HeaderRedirect, url)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, url)
}
