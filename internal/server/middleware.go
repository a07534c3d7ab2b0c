// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/appcontext"
	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/htmx"
	"codeberg.org/oliverandrich/scamsentinel/internal/i18n"
	"codeberg.org/oliverandrich/scamsentinel/internal/metrics"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// rateLimitExpiry is how long an idle client's limiter is kept.
const rateLimitExpiry = 3 * time.Minute

// UserLoader loads a user by ID.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

func setupMiddleware(e *echo.Echo, app *App) {
	cfg := app.Config

	e.Pre(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(metricsMiddleware())
	e.Use(middleware.Secure())
	e.Use(middleware.Gzip())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(staticCacheHeaders())
	e.Use(apiCORS())
	e.Use(csrfMiddleware(cfg))
	e.Use(csrfToContext())
	e.Use(i18nMiddleware())
	e.Use(customContext())
	e.Use(authMiddleware(app.Tokens, app.Repo))
	e.Use(flashMiddleware(app.Flash))
}

// isAPIPath reports whether path belongs to the JSON API.
func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// apiCORS allows cross-origin calls to the JSON API from the browser extension.
func apiCORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return !isAPIPath(c.Request().URL.Path)
		},
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	})
}

// csrfMiddleware configures CSRF protection. The API and metrics endpoints
// are exempt.
func csrfMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")

	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return isAPIPath(path) || path == "/metrics"
		},
		TokenLookup:    "form:csrf_token,header:X-CSRF-Token",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSecure:   secure,
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

// csrfToContext copies the CSRF token to the request context.
func csrfToContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
				ctx := context.WithValue(c.Request().Context(), appcontext.CSRFToken{}, token)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}

			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// metricsMiddleware records request counts and latencies per route.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDurationSeconds.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// i18nMiddleware sets the locale based on Accept-Language header.
func i18nMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := i18n.MatchLanguage(c.Request().Header.Get("Accept-Language"))
			ctx := i18n.WithLocale(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// customContext wraps the Echo context with htmx request details.
func customContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &appcontext.Context{
				Context: c,
				Htmx:    htmx.ParseRequest(c.Request()),
			}
			return next(cc)
		}
	}
}

// skipsSession reports whether path serves files that never need the user.
func skipsSession(path string) bool {
	return strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/uploads/")
}

// authMiddleware resolves the user from the access token cookie. An expired
// access token is renewed from the refresh token cookie; invalid cookies are
// cleared and the request continues anonymously.
func authMiddleware(tokens *token.Service, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipsSession(c.Request().URL.Path) {
				return next(c)
			}
			if user := authenticate(c, tokens, users); user != nil {
				if cc, ok := c.(*appcontext.Context); ok {
					cc.User = user
				}
				c.SetRequest(c.Request().WithContext(appcontext.WithUser(c.Request().Context(), user)))
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens *token.Service, users UserLoader) *models.User {
	req := c.Request()
	ctx := req.Context()

	if cookie, err := req.Cookie(token.AccessCookieName); err == nil && cookie.Value != "" {
		if claims, err := tokens.Parse(cookie.Value); err == nil {
			if id, err := claims.UserID(); err == nil {
				if user, err := users.GetUserByID(ctx, id); err == nil {
					return user
				}
			}
		}
	}

	cookie, err := req.Cookie(token.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	pair, user, err := tokens.Refresh(ctx, cookie.Value)
	if errors.Is(err, token.ErrInvalidRefreshToken) {
		slog.Debug("refresh rejected", "error", err)
		for _, ck := range tokens.ClearCookies() {
			c.SetCookie(ck)
		}
		return nil
	}
	if err != nil {
		// Keep the cookies; the next request may succeed.
		slog.Error("refresh failed", "error", err)
		return nil
	}
	for _, ck := range tokens.Cookies(pair) {
		c.SetCookie(ck)
	}
	return user
}

// flashMiddleware moves the pending flash message into the request context
// of page loads.
func flashMiddleware(m *flash.Manager) echo.MiddlewareFunc {
	skip := []string{"/static/", "/uploads/", "/api/", "/metrics", "/health"}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			for _, prefix := range skip {
				if strings.HasPrefix(req.URL.Path, prefix) {
					return next(c)
				}
			}
			if msg := m.Pop(c.Response(), req); msg != nil {
				c.SetRequest(req.WithContext(appcontext.WithFlash(req.Context(), msg)))
			}
			return next(c)
		}
	}
}

// RequireAuth redirects anonymous users to the login page.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if appcontext.UserFrom(c.Request().Context()) == nil {
			return htmx.Redirect(c, "/account/login?next="+url.QueryEscape(c.Request().RequestURI))
		}
		return next(c)
	}
}

// RequireAdmin rejects users without the admin role.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := appcontext.UserFrom(c.Request().Context())
		if user == nil {
			return htmx.Redirect(c, "/account/login?next="+url.QueryEscape(c.Request().RequestURI))
		}
		if !user.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden)
		}
		return next(c)
	}
}

// rateLimiter limits requests per client IP.
func rateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     cfg.Burst,
		ExpiresIn: rateLimitExpiry,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, _ error) error {
			return echo.NewHTTPError(http.StatusForbidden)
		},
		DenyHandler: func(_ echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, slow down.")
		},
	})
}

// staticCacheHeaders adds cache headers for static assets.
func staticCacheHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			switch {
			case strings.HasPrefix(path, "/static/") && isHashedAsset(path):
				c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			case strings.HasPrefix(path, "/static/"):
				c.Response().Header().Set("Cache-Control", "no-cache")
			case strings.HasPrefix(path, "/uploads/"):
				// Evidence keys are random and never rewritten.
				c.Response().Header().Set("Cache-Control", "public, max-age=86400")
			}
			return next(c)
		}
	}
}

// isHashedAsset checks if the path has the form name.HASH.ext with an
// 8 character hex hash.
func isHashedAsset(path string) bool {
	parts := strings.Split(path, ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) != 8 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
