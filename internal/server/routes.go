// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"net/http"

	"codeberg.org/oliverandrich/scamsentinel/internal/assets"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRoutes(e *echo.Echo, app *App) {
	h := app.Handlers
	cfg := app.Config

	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", assets.FileServer())))
	if cfg.Media.Driver == "local" || cfg.Media.Driver == "" {
		e.Static("/uploads", cfg.Media.LocalDir)
	}

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/", h.Home)
	e.GET("/about", h.Static("about"))
	e.GET("/privacy", h.Static("privacy"))
	e.GET("/legality", h.Static("legality"))
	e.GET("/news", h.NewsPage)
	e.GET("/contact", h.ContactPage)
	e.POST("/contact", h.SubmitContact)

	authLimit := rateLimiter(cfg.RateLimit)

	account := e.Group("/account")
	account.GET("/register", h.RegisterPage)
	account.POST("/register", h.Register, authLimit)
	account.GET("/verify", h.VerifyPage)
	account.POST("/verify", h.Verify, authLimit)
	account.POST("/verify/resend", h.ResendOTP, authLimit)
	account.GET("/login", h.LoginPage)
	account.POST("/login", h.Login, authLimit)
	account.POST("/logout", h.Logout, RequireAuth)
	account.GET("/profile", h.ProfilePage, RequireAuth)
	account.POST("/profile", h.UpdateProfile, RequireAuth)
	account.GET("/password", h.PasswordPage, RequireAuth)
	account.POST("/password", h.ChangePassword, RequireAuth)
	account.GET("/reports", h.MyReports, RequireAuth)

	e.GET("/reports", h.ListReports)
	e.GET("/reports/new", h.NewReport, RequireAuth)
	e.POST("/reports", h.CreateReport, RequireAuth)
	e.GET("/reports/:id", h.ShowReport)
	e.POST("/reports/:id/delete", h.DeleteReport, RequireAuth)
	e.POST("/reports/:id/vote", h.Vote, RequireAuth)
	e.POST("/reports/:id/comments", h.AddComment, RequireAuth)
	e.POST("/reports/:id/comments/edit", h.EditComment, RequireAuth)
	e.POST("/reports/:id/comments/delete", h.DeleteComment, RequireAuth)
	e.POST("/reports/:id/verify", h.VerifyReport, RequireAdmin)
	e.POST("/reports/:id/unverify", h.UnverifyReport, RequireAdmin)
	e.GET("/moderation", h.Moderation, RequireAdmin)

	api := e.Group("/api", rateLimiter(cfg.RateLimit))
	api.POST("/check", h.CheckURL)
	// Path used by the legacy browser extension.
	api.POST("/VirusTotal/check", h.CheckURL)
}
