// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/appcontext"
	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/i18n"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/token"
	"codeberg.org/oliverandrich/scamsentinel/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{Host: "localhost", Port: 8080, BaseURL: "http://localhost:8080", MaxBodySize: 10},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Session:  config.SessionConfig{CookieName: "_flash", MaxAge: 300},
		JWT: config.JWTConfig{
			Secret:     "test-secret",
			Issuer:     "scamsentinel",
			Audience:   "scamsentinel-web",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		Media: config.MediaConfig{
			Driver:        "local",
			LocalDir:      t.TempDir(),
			PublicBaseURL: "/uploads",
			MaxImages:     5,
			MaxImageSize:  1 << 20,
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 10, Burst: 20},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	db, _ := testutil.NewTestDB(t)
	app, err := NewApp(context.Background(), testConfig(t), db)
	require.NoError(t, err)
	return app
}

// whoami echoes the authenticated username.
func whoami(c echo.Context) error {
	if user := appcontext.UserFrom(c.Request().Context()); user != nil {
		return c.String(http.StatusOK, user.Username)
	}
	return c.String(http.StatusOK, "anonymous")
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestIsHashedAsset(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/static/js/app.abc12345.js", true},
		{"/static/css/app.d073ff63.css", true},
		{"/static/js/app.js", false},
		{"/static/js/app.ABCDEFGH.js", false},  // uppercase not allowed
		{"/static/js/app.abcd123.js", false},   // wrong length
		{"/static/js/app.abcd12345.js", false}, // wrong length
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHashedAsset(tt.path))
		})
	}
}

func TestStaticCacheHeaders(t *testing.T) {
	e := echo.New()
	e.Use(staticCacheHeaders())
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/static/*", ok)
	e.GET("/uploads/*", ok)
	e.GET("/reports", ok)

	tests := []struct {
		path string
		want string
	}{
		{"/static/js/app.abc12345.js", "public, max-age=31536000, immutable"},
		{"/static/js/app.js", "no-cache"},
		{"/uploads/evidence/2025/01/02/x.png", "public, max-age=86400"},
		{"/reports", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Header().Get("Cache-Control"))
		})
	}
}

func TestI18nMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(i18nMiddleware())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, i18n.GetLocale(c.Request().Context()))
	})

	tests := []struct {
		header string
		want   string
	}{
		{"de-DE,de;q=0.9", "de"},
		{"en-US", "en"},
		{"fr-FR", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", tt.header)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp(t)
	user := testutil.NewTestUser(t, app.Repo, "walter")

	e := echo.New()
	e.Use(customContext(), authMiddleware(app.Tokens, app.Repo))
	e.GET("/me", whoami)

	serve := func(cookies ...*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous", func(t *testing.T) {
		assert.Equal(t, "anonymous", serve().Body.String())
	})

	t.Run("access token", func(t *testing.T) {
		pair, err := app.Tokens.Issue(context.Background(), user)
		require.NoError(t, err)

		rec := serve(&http.Cookie{Name: token.AccessCookieName, Value: pair.AccessToken})
		assert.Equal(t, "walter", rec.Body.String())
		assert.Nil(t, cookieByName(rec, token.AccessCookieName), "no renewal needed")
	})

	t.Run("refresh renews expired access token", func(t *testing.T) {
		pair, err := app.Tokens.Issue(context.Background(), user)
		require.NoError(t, err)

		rec := serve(
			&http.Cookie{Name: token.AccessCookieName, Value: "garbage"},
			&http.Cookie{Name: token.RefreshCookieName, Value: pair.RefreshToken},
		)
		assert.Equal(t, "walter", rec.Body.String())

		renewed := cookieByName(rec, token.AccessCookieName)
		require.NotNil(t, renewed)
		assert.NotEmpty(t, renewed.Value)
		require.NotNil(t, cookieByName(rec, token.RefreshCookieName))
		assert.NotEqual(t, pair.RefreshToken, cookieByName(rec, token.RefreshCookieName).Value)
	})

	t.Run("parallel refreshes keep the session", func(t *testing.T) {
		pair, err := app.Tokens.Issue(context.Background(), user)
		require.NoError(t, err)
		expired := &http.Cookie{Name: token.RefreshCookieName, Value: pair.RefreshToken}

		recs := make([]*httptest.ResponseRecorder, 3)
		var wg sync.WaitGroup
		for i := range recs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				recs[i] = serve(expired)
			}()
		}
		wg.Wait()

		for i, rec := range recs {
			assert.Equal(t, "walter", rec.Body.String(), "request %d", i)
			renewed := cookieByName(rec, token.RefreshCookieName)
			require.NotNil(t, renewed)
			assert.Positive(t, renewed.MaxAge, "request %d must not clear the session", i)
		}
	})

	t.Run("static files skip token refresh", func(t *testing.T) {
		pair, err := app.Tokens.Issue(context.Background(), user)
		require.NoError(t, err)

		e.GET("/static/*", whoami)
		req := httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil)
		req.AddCookie(&http.Cookie{Name: token.RefreshCookieName, Value: pair.RefreshToken})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "anonymous", rec.Body.String())
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("invalid refresh token clears cookies", func(t *testing.T) {
		rec := serve(&http.Cookie{Name: token.RefreshCookieName, Value: "unknown"})
		assert.Equal(t, "anonymous", rec.Body.String())

		cleared := cookieByName(rec, token.RefreshCookieName)
		require.NotNil(t, cleared)
		assert.Negative(t, cleared.MaxAge)
	})
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()
	e.GET("/account/profile", whoami, RequireAuth)

	t.Run("anonymous redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account/profile", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/account/login?next=%2Faccount%2Fprofile", rec.Header().Get("Location"))
	})

	t.Run("htmx gets HX-Redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/account/profile", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/account/login?next=%2Faccount%2Fprofile", rec.Header().Get("HX-Redirect"))
	})

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/account/profile", nil)
		req = req.WithContext(appcontext.WithUser(req.Context(), &models.User{ID: 1, Username: "trent"}))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "trent", rec.Body.String())
	})
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	e.GET("/moderation", whoami, RequireAdmin)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusSeeOther},
		{"regular user", &models.User{ID: 1, Username: "victor"}, http.StatusForbidden},
		{"admin", &models.User{ID: 2, Username: "olivia", IsAdmin: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/moderation", nil)
			if tt.user != nil {
				req = req.WithContext(appcontext.WithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	e := echo.New()
	e.POST("/account/login", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, rateLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/account/login", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestFlashMiddleware(t *testing.T) {
	manager, err := flash.NewManager(&config.SessionConfig{CookieName: "_flash", MaxAge: 60}, false)
	require.NoError(t, err)

	e := echo.New()
	e.Use(flashMiddleware(manager))
	show := func(c echo.Context) error {
		if msg := appcontext.FlashFrom(c.Request().Context()); msg != nil {
			return c.String(http.StatusOK, msg.Kind+":"+msg.Text)
		}
		return c.String(http.StatusOK, "none")
	}
	e.GET("/", show)
	e.POST("/", show)
	e.GET("/health", show)

	cookie, err := manager.Cookie(flash.Message{Kind: flash.KindSuccess, Text: "Saved"})
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/", "success:Saved"},
		{http.MethodPost, "/", "none"},
		{http.MethodGet, "/health", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.AddCookie(cookie)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestRoutes(t *testing.T) {
	app := newTestApp(t)
	e := NewEcho(app)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		status   int
		location string
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK, ""},
		{"home", http.MethodGet, "/", "", http.StatusOK, ""},
		{"reports", http.MethodGet, "/reports", "", http.StatusOK, ""},
		{"static page", http.MethodGet, "/privacy", "", http.StatusOK, ""},
		{"stylesheet", http.MethodGet, "/static/css/app.css", "", http.StatusOK, ""},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, ""},
		{"trailing slash", http.MethodGet, "/reports/", "", http.StatusMovedPermanently, "/reports"},
		{"new report needs login", http.MethodGet, "/reports/new", "", http.StatusSeeOther, "/account/login?next=%2Freports%2Fnew"},
		{"moderation needs login", http.MethodGet, "/moderation", "", http.StatusSeeOther, "/account/login?next=%2Fmoderation"},
		{"unknown report", http.MethodGet, "/reports/999", "", http.StatusNotFound, ""},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound, ""},
		{"api without csrf", http.MethodPost, "/api/check", `{"url":""}`, http.StatusBadRequest, ""},
		{"legacy api path", http.MethodPost, "/api/VirusTotal/check", `{"url":""}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRoutes_APIErrorsAreJSON(t *testing.T) {
	e := NewEcho(newTestApp(t))

	for _, path := range []string{"/api/check", "/api/VirusTotal/check"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"url":""}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"URL is required"}`, rec.Body.String())
		})
	}
}

func TestRoutes_CORSPreflight(t *testing.T) {
	e := NewEcho(newTestApp(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/check", nil)
	req.Header.Set(echo.HeaderOrigin, "chrome-extension://abcdef")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRoutes_FormsRequireCSRF(t *testing.T) {
	e := NewEcho(newTestApp(t))

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("name=x"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)
}
