// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context and context keys.
package appcontext

import (
	"context"

	"codeberg.org/oliverandrich/scamsentinel/internal/htmx"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"github.com/labstack/echo/v4"
)

// Context keys for storing values in context.Context.
type (
	// CSRFToken is the context key for the CSRF token.
	CSRFToken struct{}
	// User is the context key for the authenticated user.
	User struct{}
	// Flash is the context key for the flash message of the current request.
	Flash struct{}
)

// Context is a custom Echo context with typed fields for htmx and the user.
type Context struct {
	echo.Context
	Htmx *htmx.Request
	User *models.User // nil if not authenticated
}

// GetUser returns the authenticated user, or nil if not authenticated.
func (c *Context) GetUser() *models.User {
	return c.User
}

// IsAuthenticated returns true if the user is authenticated.
func (c *Context) IsAuthenticated() bool {
	return c.User != nil
}

// WithUser stores the user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User{}, user)
}

// UserFrom returns the user stored in ctx, or nil.
func UserFrom(ctx context.Context) *models.User {
	if user, ok := ctx.Value(User{}).(*models.User); ok {
		return user
	}
	return nil
}

// WithFlash stores a flash message in ctx.
func WithFlash(ctx context.Context, msg *flash.Message) context.Context {
	return context.WithValue(ctx, Flash{}, msg)
}

// FlashFrom returns the flash message stored in ctx, or nil.
func FlashFrom(ctx context.Context) *flash.Message {
	if msg, ok := ctx.Value(Flash{}).(*flash.Message); ok {
		return msg
	}
	return nil
}

// CSRFFrom returns the CSRF token stored in ctx.
func CSRFFrom(ctx context.Context) string {
	if token, ok := ctx.Value(CSRFToken{}).(string); ok {
		return token
	}
	return ""
}
