// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package appcontext_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/scamsentinel/internal/appcontext"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"github.com/stretchr/testify/assert"
)

func TestContext_GetUser(t *testing.T) {
	user := &models.User{ID: 123, Username: "testuser"}
	ctx := &appcontext.Context{User: user}

	assert.Equal(t, user, ctx.GetUser())
	assert.True(t, ctx.IsAuthenticated())
}

func TestContext_Anonymous(t *testing.T) {
	ctx := &appcontext.Context{}

	assert.Nil(t, ctx.GetUser())
	assert.False(t, ctx.IsAuthenticated())
}

func TestUserFrom(t *testing.T) {
	user := &models.User{ID: 7}

	assert.Nil(t, appcontext.UserFrom(context.Background()))
	assert.Equal(t, user, appcontext.UserFrom(appcontext.WithUser(context.Background(), user)))
}

func TestFlashFrom(t *testing.T) {
	msg := &flash.Message{Kind: flash.KindSuccess, Text: "saved"}

	assert.Nil(t, appcontext.FlashFrom(context.Background()))
	assert.Equal(t, msg, appcontext.FlashFrom(appcontext.WithFlash(context.Background(), msg)))
}

func TestCSRFFrom(t *testing.T) {
	ctx := context.WithValue(context.Background(), appcontext.CSRFToken{}, "tok")

	assert.Equal(t, "tok", appcontext.CSRFFrom(ctx))
	assert.Empty(t, appcontext.CSRFFrom(context.Background()))
}
