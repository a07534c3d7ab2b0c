// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/scamsentinel/internal/services/email"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/templates"
	"codeberg.org/oliverandrich/scamsentinel/internal/validation"
	"github.com/labstack/echo/v4"
)

// ContactPage renders the contact form, prefilled for logged in users.
func (h *Handlers) ContactPage(c echo.Context) error {
	form := map[string]string{}
	if u := currentUser(c); u != nil {
		form["name"], form["email"] = u.Username, u.Email
	}
	return Render(c, http.StatusOK, templates.Page("contact", &templates.View{Form: form}))
}

// SubmitContact mails the message to the operator inbox.
func (h *Handlers) SubmitContact(c echo.Context) error {
	form := formValues(c, "name", "email", "subject", "message")

	errs := validation.Errors{}
	if errs.Required("name", form["name"]) {
		errs.MaxLength("name", form["name"], 100)
	}
	if errs.Required("email", form["email"]) {
		errs.Email("email", form["email"])
	}
	if errs.Required("subject", form["subject"]) {
		errs.MaxLength("subject", form["subject"], 200)
	}
	if errs.Required("message", form["message"]) {
		errs.MaxLength("message", form["message"], 5000)
	}
	if len(errs) > 0 {
		return Render(c, http.StatusUnprocessableEntity, templates.Page("contact", &templates.View{
			Form: form, Errors: errs,
		}))
	}

	err := h.Contact.SendContact(c.Request().Context(), h.ContactRecipient, email.ContactMessage{
		Name:    form["name"],
		Email:   form["email"],
		Subject: form["subject"],
		Message: form["message"],
	})
	if err != nil {
		slog.Error("failed to send contact message", "error", err)
		return h.redirectWithFlash(c, "/contact", flash.KindError, "flash_contact_failed")
	}

	slog.Info("contact_sent", "email", form["email"])
	return h.redirectWithFlash(c, "/", flash.KindSuccess, "flash_contact_sent")
}
