// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build dev

// Package assets serves static files straight from the source tree in dev
// builds, so CSS and JS edits show up on reload.
package assets

import "net/http"

const sourceDir = "internal/assets/static"

// Path returns the unhashed public URL of a static file.
func Path(name string) string {
	return "/static/" + name
}

// FileServer serves files from sourceDir and disables browser caching.
func FileServer() http.Handler {
	files := http.FileServer(http.Dir(sourceDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
