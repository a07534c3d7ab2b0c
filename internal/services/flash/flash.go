// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package flash stores one-shot user messages in a signed cookie.
package flash

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"github.com/gorilla/securecookie"
)

// Message kinds, used as CSS modifiers in the layout.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindInfo    = "info"
)

// Message is a single flash message.
type Message struct {
	Kind string `json:"k"`
	Text string `json:"t"`
}

// Manager encodes and decodes flash cookies.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     int
	secure     bool
}

// NewManager creates a flash manager. Without a hash key a random one is
// generated, which is fine for development but drops pending flashes on restart.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "hash")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		slog.Warn("no session hash key configured, generating a random one")
		hashKey = make([]byte, 32)
		if _, err := rand.Read(hashKey); err != nil {
			return nil, fmt.Errorf("failed to generate session hash key: %w", err)
		}
	}

	blockKey, err := decodeKey(cfg.BlockKey, "block")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

func decodeKey(s, name string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s key: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid session %s key: must be 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// Cookie encodes a message into a cookie.
func (m *Manager) Cookie(msg Message) (*http.Cookie, error) {
	value, err := m.codec.Encode(m.cookieName, msg)
	if err != nil {
		return nil, err
	}
	return m.cookie(value, m.maxAge), nil
}

// Set writes a message cookie to the response.
func (m *Manager) Set(w http.ResponseWriter, kind, text string) {
	cookie, err := m.Cookie(Message{Kind: kind, Text: text})
	if err != nil {
		slog.Error("failed to encode flash", "error", err)
		return
	}
	http.SetCookie(w, cookie)
}

// Pop returns the pending message, if any, and clears the cookie.
// Invalid or tampered cookies are cleared and yield nil.
func (m *Manager) Pop(w http.ResponseWriter, r *http.Request) *Message {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(w, m.Clear())

	var msg Message
	if err := m.codec.Decode(m.cookieName, cookie.Value, &msg); err != nil {
		return nil
	}
	return &msg
}

// Clear returns a cookie that deletes the flash cookie.
func (m *Manager) Clear() *http.Cookie {
	return m.cookie("", -1)
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
