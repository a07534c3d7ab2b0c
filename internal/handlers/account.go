// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"codeberg.org/oliverandrich/scamsentinel/internal/htmx"
	"codeberg.org/oliverandrich/scamsentinel/internal/metrics"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/auth"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/token"
	"codeberg.org/oliverandrich/scamsentinel/internal/templates"
	"codeberg.org/oliverandrich/scamsentinel/internal/validation"
	"github.com/labstack/echo/v4"
)

func verifyURL(email string) string {
	return "/account/verify?email=" + url.QueryEscape(email)
}

// issueSession sets fresh access and refresh token cookies for user.
func (h *Handlers) issueSession(c echo.Context, user *models.User) error {
	pair, err := h.Tokens.Issue(c.Request().Context(), user)
	if err != nil {
		return err
	}
	for _, cookie := range h.Tokens.Cookies(pair) {
		c.SetCookie(cookie)
	}
	return nil
}

// RegisterPage renders the registration form.
func (h *Handlers) RegisterPage(c echo.Context) error {
	if currentUser(c) != nil {
		return htmx.Redirect(c, "/")
	}
	return Render(c, http.StatusOK, templates.Page("register", &templates.View{}))
}

// Register creates an unverified account and sends the verification code.
func (h *Handlers) Register(c echo.Context) error {
	form := formValues(c, "username", "email")
	user, err := h.Auth.Register(c.Request().Context(), auth.RegisterParams{
		Username:        form["username"],
		Email:           form["email"],
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm_password"),
	})
	metrics.RegistrationsTotal.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		errs, ok := asValidation(err)
		switch {
		case ok:
		case errors.Is(err, auth.ErrUsernameTaken):
			errs = validation.Errors{"username": "validation_username_taken"}
		case errors.Is(err, auth.ErrEmailTaken):
			errs = validation.Errors{"email": "validation_email_taken"}
		default:
			return err
		}
		return Render(c, http.StatusUnprocessableEntity, templates.Page("register", &templates.View{
			Form: form, Errors: errs,
		}))
	}

	return h.redirectWithFlash(c, verifyURL(user.Email), flash.KindInfo, "flash_otp_sent")
}

// VerifyPage renders the code entry form.
func (h *Handlers) VerifyPage(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Page("verify", &templates.View{
		Form: map[string]string{"email": c.QueryParam("email")},
	}))
}

// Verify checks the code, marks the account verified and logs the user in.
func (h *Handlers) Verify(c echo.Context) error {
	form := formValues(c, "email", "code")
	user, err := h.Auth.VerifyOTP(c.Request().Context(), form["email"], form["code"])
	if errors.Is(err, auth.ErrInvalidOTP) {
		return Render(c, http.StatusUnprocessableEntity, templates.Page("verify", &templates.View{
			Form:   map[string]string{"email": form["email"]},
			Errors: validation.Errors{"code": "validation_otp"},
		}))
	}
	if err != nil {
		return err
	}

	if err := h.issueSession(c, user); err != nil {
		return err
	}
	return h.redirectWithFlash(c, "/", flash.KindSuccess, "flash_verified")
}

// ResendOTP mails a new code. The response is the same whether or not the
// address belongs to an unverified account.
func (h *Handlers) ResendOTP(c echo.Context) error {
	email := c.FormValue("email")
	if err := h.Auth.ResendOTP(c.Request().Context(), email); err != nil {
		slog.Error("failed to resend code", "error", err)
	}
	return h.redirectWithFlash(c, verifyURL(email), flash.KindInfo, "flash_otp_resent")
}

// LoginPage renders the login form.
func (h *Handlers) LoginPage(c echo.Context) error {
	if currentUser(c) != nil {
		return htmx.Redirect(c, "/")
	}
	return Render(c, http.StatusOK, templates.Page("login", &templates.View{
		Form: map[string]string{"next": safeNext(c.QueryParam("next"), "")},
	}))
}

// Login checks the credentials and sets the session cookies.
func (h *Handlers) Login(c echo.Context) error {
	ctx := c.Request().Context()
	form := formValues(c, "email", "next")

	user, err := h.Auth.Login(ctx, form["email"], c.FormValue("password"))
	metrics.LoginsTotal.WithLabelValues(metrics.Result(err)).Inc()

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return Render(c, http.StatusUnauthorized, templates.Page("login", &templates.View{
			Form: form, Errors: validation.Errors{"form": "login_invalid"},
		}))
	case errors.Is(err, auth.ErrNotVerified):
		if resendErr := h.Auth.ResendOTP(ctx, form["email"]); resendErr != nil {
			slog.Error("failed to resend code", "error", resendErr)
		}
		return h.redirectWithFlash(c, verifyURL(form["email"]), flash.KindInfo, "flash_verify_first")
	case err != nil:
		return err
	}

	if err := h.issueSession(c, user); err != nil {
		return err
	}
	return h.redirectWithFlash(c, safeNext(form["next"], "/"), flash.KindSuccess, "flash_logged_in")
}

// Logout revokes the refresh token and clears the session cookies.
func (h *Handlers) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(token.RefreshCookieName); err == nil && cookie.Value != "" {
		if err := h.Tokens.Revoke(c.Request().Context(), cookie.Value); err != nil {
			slog.Error("failed to revoke refresh token", "error", err)
		}
	}
	for _, cookie := range h.Tokens.ClearCookies() {
		c.SetCookie(cookie)
	}
	return h.redirectWithFlash(c, "/", flash.KindSuccess, "flash_logged_out")
}

// ProfilePage renders the profile form.
func (h *Handlers) ProfilePage(c echo.Context) error {
	user := currentUser(c)
	return Render(c, http.StatusOK, templates.Page("profile", &templates.View{
		Form: map[string]string{"username": user.Username, "contact_number": user.ContactNumber},
	}))
}

// UpdateProfile saves the username and contact number.
func (h *Handlers) UpdateProfile(c echo.Context) error {
	user := currentUser(c)
	form := formValues(c, "username", "contact_number")

	_, err := h.Auth.UpdateProfile(c.Request().Context(), user.ID, form["username"], form["contact_number"])
	if err != nil {
		errs, ok := asValidation(err)
		if !ok && errors.Is(err, auth.ErrUsernameTaken) {
			errs, ok = validation.Errors{"username": "validation_username_taken"}, true
		}
		if !ok {
			return err
		}
		return Render(c, http.StatusUnprocessableEntity, templates.Page("profile", &templates.View{
			Form: form, Errors: errs,
		}))
	}

	return h.redirectWithFlash(c, "/account/profile", flash.KindSuccess, "flash_profile_saved")
}

// PasswordPage renders the change password form.
func (h *Handlers) PasswordPage(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Page("password", &templates.View{}))
}

// ChangePassword replaces the password. Other sessions end; this one gets
// fresh tokens.
func (h *Handlers) ChangePassword(c echo.Context) error {
	user := currentUser(c)
	err := h.Auth.ChangePassword(c.Request().Context(), user.ID,
		c.FormValue("current_password"), c.FormValue("new_password"), c.FormValue("confirm_password"))
	if errs, ok := asValidation(err); ok {
		return Render(c, http.StatusUnprocessableEntity, templates.Page("password", &templates.View{Errors: errs}))
	}
	if err != nil {
		return err
	}

	if err := h.issueSession(c, user); err != nil {
		return err
	}
	return h.redirectWithFlash(c, "/account/profile", flash.KindSuccess, "flash_password_changed")
}

// MyReports lists the user's own reports.
func (h *Handlers) MyReports(c echo.Context) error {
	page, err := h.Reports.MyReports(c.Request().Context(), currentUser(c).ID, queryInt(c, "page"))
	if err != nil {
		return err
	}
	return Render(c, http.StatusOK, templates.Page("my_reports", &templates.View{
		Data: templates.ListingData{Page: page},
	}))
}
