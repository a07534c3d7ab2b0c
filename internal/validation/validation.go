// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package validation collects per-field form errors. Messages are i18n
// message IDs so forms can render them in the request locale.
package validation

import (
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// Errors maps form field names to message IDs. The first error per field wins.
type Errors map[string]string

// Error implements error.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Has reports whether field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Err returns e as an error, or nil when empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Required checks that value is not blank.
func (e Errors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "validation_required")
		return false
	}
	return true
}

// MaxLength checks the rune length of value.
func (e Errors) MaxLength(field, value string, n int) bool {
	if utf8.RuneCountInString(value) > n {
		e.Add(field, "validation_too_long")
		return false
	}
	return true
}

// Username checks the allowed username characters and length.
func (e Errors) Username(field, value string) bool {
	n := utf8.RuneCountInString(value)
	if n < 3 || n > 50 || !usernamePattern.MatchString(value) {
		e.Add(field, "validation_username")
		return false
	}
	return true
}

// Email checks for a single bare address.
func (e Errors) Email(field, value string) bool {
	if value == "" {
		return true
	}
	if !IsEmail(value) {
		e.Add(field, "validation_email")
		return false
	}
	return true
}

// Phone checks an optional international phone number.
func (e Errors) Phone(field, value string) bool {
	if value == "" {
		return true
	}
	if !phonePattern.MatchString(value) {
		e.Add(field, "validation_phone")
		return false
	}
	return true
}

// URL checks an optional absolute http(s) URL.
func (e Errors) URL(field, value string) bool {
	if value == "" {
		return true
	}
	u, err := url.ParseRequestURI(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		e.Add(field, "validation_url")
		return false
	}
	return true
}

// IsEmail reports whether value is a bare email address without display name.
func IsEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}
