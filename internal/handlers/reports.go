// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/reports"
	"codeberg.org/oliverandrich/scamsentinel/internal/templates"
	"codeberg.org/oliverandrich/scamsentinel/internal/validation"
	"github.com/labstack/echo/v4"
)

var reportFields = []string{
	"title", "scam_type", "description",
	"scammer_name", "scammer_organization", "scammer_phone",
	"scammer_whatsapp", "scammer_email", "scammer_facebook_url",
	"loss_amount", "currency", "location", "occurrence_date",
}

// ListReports renders the searchable report list.
func (h *Handlers) ListReports(c echo.Context) error {
	ctx := c.Request().Context()
	search := strings.TrimSpace(c.QueryParam("search"))
	typeID, _ := strconv.ParseInt(c.QueryParam("type"), 10, 64)

	page, err := h.Reports.List(ctx, viewerID(c), repository.ReportFilter{
		Search:     search,
		ScamTypeID: typeID,
		Page:       queryInt(c, "page"),
		PageSize:   reports.ListPageSize,
	})
	if err != nil {
		return err
	}

	types, err := h.Reports.ScamTypes(ctx)
	if err != nil {
		return err
	}

	return Render(c, http.StatusOK, templates.Page("reports", &templates.View{
		Data: templates.ReportListData{Page: page, Types: types, Search: search, TypeID: typeID},
	}))
}

// NewReport renders the submission form.
func (h *Handlers) NewReport(c echo.Context) error {
	return h.renderReportForm(c, http.StatusOK, nil, nil)
}

func (h *Handlers) renderReportForm(c echo.Context, status int, form map[string]string, errs validation.Errors) error {
	types, err := h.Reports.ScamTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, status, templates.Page("report_new", &templates.View{
		Form: form, Errors: errs,
		Data: templates.ReportFormData{Types: types},
	}))
}

// CreateReport stores a submitted report with its evidence images.
func (h *Handlers) CreateReport(c echo.Context) error {
	form := formValues(c, reportFields...)
	typeID, _ := strconv.ParseInt(form["scam_type"], 10, 64)

	params := reports.SubmitParams{
		Title:       form["title"],
		Description: form["description"],
		ScamTypeID:  typeID,
		ScammerInfo: models.ScammerInfo{
			Phone:        form["scammer_phone"],
			WhatsApp:     form["scammer_whatsapp"],
			Email:        form["scammer_email"],
			FacebookURL:  form["scammer_facebook_url"],
			Name:         form["scammer_name"],
			Organization: form["scammer_organization"],
		},
		LossAmount:     form["loss_amount"],
		Currency:       form["currency"],
		Location:       form["location"],
		OccurrenceDate: form["occurrence_date"],
	}
	if mf, err := c.MultipartForm(); err == nil {
		params.Files = mf.File["evidence"]
	}

	report, err := h.Reports.Submit(c.Request().Context(), currentUser(c).ID, params)
	if errs, ok := asValidation(err); ok {
		return h.renderReportForm(c, http.StatusUnprocessableEntity, form, errs)
	}
	if err != nil {
		return err
	}

	return h.redirectWithFlash(c, reportURL(report.ID), flash.KindSuccess, "flash_report_submitted")
}

// ShowReport renders a report with its comments.
func (h *Handlers) ShowReport(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	return h.renderDetail(c, http.StatusOK, id, nil, nil)
}

func (h *Handlers) renderDetail(c echo.Context, status int, id int64, form map[string]string, errs validation.Errors) error {
	user := currentUser(c)
	d, err := h.Reports.Get(c.Request().Context(), viewerID(c), id)
	if err != nil {
		return err
	}

	data := templates.ReportDetailData{
		Report:      d.Report,
		Comments:    d.Comments,
		UserComment: d.UserComment,
	}
	if user != nil {
		data.CanDelete = user.IsAdmin || user.ID == d.Report.UserID
		data.CanModerate = user.IsAdmin
	}

	return Render(c, status, templates.Page("report_detail", &templates.View{
		Form: form, Errors: errs, Data: data,
	}))
}

// DeleteReport removes a report. Owners and admins only.
func (h *Handlers) DeleteReport(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.Reports.Delete(c.Request().Context(), currentUser(c), id); err != nil {
		return err
	}
	return h.redirectWithFlash(c, "/account/reports", flash.KindSuccess, "flash_report_deleted")
}

// Vote toggles the user's vote. htmx requests get the updated widget,
// everything else the counters as JSON.
func (h *Handlers) Vote(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	tally, err := h.Reports.Vote(c.Request().Context(), currentUser(c).ID, id, c.FormValue("direction"))
	if errors.Is(err, reports.ErrInvalidDirection) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}

	if isPartial(c) {
		return Render(c, http.StatusOK, templates.Vote(&templates.View{}, id, tally))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"upvotes":   tally.Upvotes,
		"downvotes": tally.Downvotes,
		"userVote":  tally.UserVote,
	})
}

// AddComment posts the user's comment on a report.
func (h *Handlers) AddComment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	form := formValues(c, "text")

	_, err = h.Reports.AddComment(c.Request().Context(), currentUser(c).ID, id, form["text"])
	switch {
	case errors.Is(err, reports.ErrAlreadyCommented):
		return h.redirectWithFlash(c, reportURL(id), flash.KindError, "flash_already_commented")
	case err != nil:
		if errs, ok := asValidation(err); ok {
			return h.renderDetail(c, http.StatusUnprocessableEntity, id, form, errs)
		}
		return err
	}

	return h.redirectWithFlash(c, reportURL(id)+"#comments", flash.KindSuccess, "flash_comment_added")
}

// EditComment replaces the text of the user's comment.
func (h *Handlers) EditComment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	form := formValues(c, "text")

	err = h.Reports.EditComment(c.Request().Context(), currentUser(c).ID, id, form["text"])
	switch {
	case errors.Is(err, reports.ErrNoComment):
		return h.redirectWithFlash(c, reportURL(id), flash.KindError, "flash_no_comment")
	case err != nil:
		if errs, ok := asValidation(err); ok {
			return h.renderDetail(c, http.StatusUnprocessableEntity, id, form, errs)
		}
		return err
	}

	return h.redirectWithFlash(c, reportURL(id)+"#comments", flash.KindSuccess, "flash_comment_updated")
}

// DeleteComment removes a comment. Without comment_id the user's own
// comment is removed.
func (h *Handlers) DeleteComment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	commentID, _ := strconv.ParseInt(c.FormValue("comment_id"), 10, 64)

	err = h.Reports.DeleteComment(c.Request().Context(), currentUser(c), id, commentID)
	if errors.Is(err, reports.ErrNoComment) {
		return h.redirectWithFlash(c, reportURL(id), flash.KindError, "flash_no_comment")
	}
	if err != nil {
		return err
	}

	return h.redirectWithFlash(c, reportURL(id)+"#comments", flash.KindSuccess, "flash_comment_deleted")
}

// Moderation lists reports waiting for verification.
func (h *Handlers) Moderation(c echo.Context) error {
	page, err := h.Reports.Pending(c.Request().Context(), queryInt(c, "page"))
	if err != nil {
		return err
	}
	return Render(c, http.StatusOK, templates.Page("moderation", &templates.View{
		Data: templates.ListingData{Page: page},
	}))
}

// VerifyReport marks a report verified.
func (h *Handlers) VerifyReport(c echo.Context) error {
	return h.setVerification(c, true)
}

// UnverifyReport clears a report's verification.
func (h *Handlers) UnverifyReport(c echo.Context) error {
	return h.setVerification(c, false)
}

func (h *Handlers) setVerification(c echo.Context, verified bool) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	notes := strings.TrimSpace(c.FormValue("notes"))
	if verified {
		err = h.Reports.Verify(ctx, currentUser(c), id, notes)
	} else {
		err = h.Reports.Unverify(ctx, currentUser(c), id, notes)
	}
	if errs, ok := asValidation(err); ok {
		return h.renderDetail(c, http.StatusUnprocessableEntity, id, nil, errs)
	}
	if err != nil {
		return err
	}

	msg := "flash_report_unverified"
	if verified {
		msg = "flash_report_verified"
	}
	return h.redirectWithFlash(c, safeNext(c.FormValue("next"), reportURL(id)), flash.KindSuccess, msg)
}
