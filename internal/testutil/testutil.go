// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/scamsentinel/internal/database"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain password of users created by NewTestUser.
const TestPassword = "correct-horse-battery"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a verified test user with TestPassword.
func NewTestUser(t *testing.T, repo *repository.Repository, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Email:        strings.ToLower(username) + "@example.com",
		PasswordHash: string(hash),
		IsVerified:   true,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewTestAdmin creates a verified admin user.
func NewTestAdmin(t *testing.T, repo *repository.Repository, username string) *models.User {
	t.Helper()
	user := NewTestUser(t, repo, username)
	require.NoError(t, repo.SetUserAdmin(context.Background(), user.ID, true))
	user.IsAdmin = true
	return user
}

// NewTestReport creates a report by the given user with the first scam type.
func NewTestReport(t *testing.T, repo *repository.Repository, userID int64, title string) *models.ScamReport {
	t.Helper()
	ctx := context.Background()
	types, err := repo.ListScamTypes(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, types)

	report := &models.ScamReport{
		UserID:      userID,
		ScamTypeID:  types[0].ID,
		Title:       title,
		Description: "Someone called and asked for gift cards.",
		ScammerInfo: models.ScammerInfo{Phone: "+15550100"},
		LossAmount:  120,
		Currency:    "USD",
	}
	require.NoError(t, repo.CreateReport(ctx, report))
	return report
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewFormContext creates an Echo context carrying a url-encoded form body.
func NewFormContext(e *echo.Echo, method, path, form string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
