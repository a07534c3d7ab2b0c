// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reports implements scam report submission, voting, comments and
// moderation on top of the repository.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime/multipart"
	"regexp"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/metrics"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/validation"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var (
	ErrForbidden        = errors.New("not allowed")
	ErrAlreadyCommented = errors.New("you have already commented on this report")
	ErrNoComment        = errors.New("comment not found")
	ErrInvalidDirection = errors.New("direction must be up or down")
)

const (
	ListPageSize       = 7
	MyReportsPageSize  = 10
	ModerationPageSize = 20
	MaxCommentLength   = 1000
	MaxTitleLength     = 200
	MaxDescription     = 5000
	DefaultCurrency    = "USD"

	// uploadConcurrency bounds parallel evidence uploads per submission.
	uploadConcurrency = 5
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ImageSaver stores one uploaded image and returns its public URL.
type ImageSaver interface {
	SaveImage(ctx context.Context, fh *multipart.FileHeader) (string, error)
}

type Service struct {
	repo      *repository.Repository
	images    ImageSaver
	maxImages int
	now       func() time.Time
}

func NewService(repo *repository.Repository, images ImageSaver, maxImages int) *Service {
	if maxImages <= 0 || maxImages > models.MaxEvidenceLinks {
		maxImages = models.MaxEvidenceLinks
	}
	return &Service{repo: repo, images: images, maxImages: maxImages, now: time.Now}
}

// SubmitParams is the raw submission form.
type SubmitParams struct { //nolint:govet // fieldalignment not critical
	Title          string
	Description    string
	ScamTypeID     int64
	ScammerInfo    models.ScammerInfo
	LossAmount     string
	Currency       string
	Location       string
	OccurrenceDate string // YYYY-MM-DD, optional
	Files          []*multipart.FileHeader
}

// ScamTypes lists the report categories.
func (s *Service) ScamTypes(ctx context.Context) ([]models.ScamType, error) {
	return s.repo.ListScamTypes(ctx)
}

// Submit validates the form, uploads the evidence and stores the report.
func (s *Service) Submit(ctx context.Context, userID int64, p SubmitParams) (*models.ScamReport, error) {
	report, errs := s.parse(p)

	if p.ScamTypeID <= 0 {
		errs.Add("scam_type", "validation_required")
	} else if _, err := s.repo.GetScamType(ctx, p.ScamTypeID); errors.Is(err, repository.ErrNotFound) {
		errs.Add("scam_type", "validation_scam_type")
	} else if err != nil {
		return nil, fmt.Errorf("failed to load scam type: %w", err)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	report.UserID = userID
	report.SetEvidenceLinks(s.uploadEvidence(ctx, p.Files))

	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	metrics.ReportsSubmittedTotal.Inc()
	slog.Info("report_submitted", "report_id", report.ID, "user_id", userID, "evidence", len(report.EvidenceLinks()))
	return report, nil
}

func (s *Service) parse(p SubmitParams) (*models.ScamReport, validation.Errors) {
	errs := validation.Errors{}

	title := strings.TrimSpace(p.Title)
	description := strings.TrimSpace(p.Description)
	if errs.Required("title", title) {
		errs.MaxLength("title", title, MaxTitleLength)
	}
	if errs.Required("description", description) {
		errs.MaxLength("description", description, MaxDescription)
	}

	info := models.ScammerInfo{
		Phone:        strings.TrimSpace(p.ScammerInfo.Phone),
		WhatsApp:     strings.TrimSpace(p.ScammerInfo.WhatsApp),
		Email:        strings.ToLower(strings.TrimSpace(p.ScammerInfo.Email)),
		FacebookURL:  strings.TrimSpace(p.ScammerInfo.FacebookURL),
		Name:         strings.TrimSpace(p.ScammerInfo.Name),
		Organization: strings.TrimSpace(p.ScammerInfo.Organization),
	}
	errs.Phone("scammer_phone", info.Phone)
	errs.Phone("scammer_whatsapp", info.WhatsApp)
	errs.Email("scammer_email", info.Email)
	errs.URL("scammer_facebook_url", info.FacebookURL)
	errs.MaxLength("scammer_name", info.Name, 100)
	errs.MaxLength("scammer_organization", info.Organization, 100)

	location := strings.TrimSpace(p.Location)
	errs.MaxLength("location", location, 200)

	var loss float64
	if raw := strings.TrimSpace(p.LossAmount); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			errs.Add("loss_amount", "validation_amount")
		} else {
			loss = math.Round(v*100) / 100
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = DefaultCurrency
	} else if !currencyPattern.MatchString(currency) {
		errs.Add("currency", "validation_currency")
	}

	report := &models.ScamReport{
		ScamTypeID:  p.ScamTypeID,
		Title:       title,
		Description: description,
		ScammerInfo: info,
		LossAmount:  loss,
		Currency:    currency,
		Location:    location,
	}

	if raw := strings.TrimSpace(p.OccurrenceDate); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		switch {
		case err != nil:
			errs.Add("occurrence_date", "validation_date")
		case d.After(s.now().UTC()):
			errs.Add("occurrence_date", "validation_date_future")
		default:
			report.OccurrenceDate.Time, report.OccurrenceDate.Valid = d, true
		}
	}

	return report, errs
}

// uploadEvidence stores up to maxImages files concurrently. Failed uploads
// are skipped; the remaining links keep their submission order.
func (s *Service) uploadEvidence(ctx context.Context, files []*multipart.FileHeader) []string {
	files = lo.Filter(files, func(fh *multipart.FileHeader, _ int) bool {
		return fh != nil && fh.Size > 0
	})
	if len(files) > s.maxImages {
		slog.Debug("evidence_truncated", "submitted", len(files), "kept", s.maxImages)
		files = files[:s.maxImages]
	}

	links := make([]string, len(files))
	var g errgroup.Group
	g.SetLimit(uploadConcurrency)
	for i, fh := range files {
		g.Go(func() error {
			url, err := s.images.SaveImage(ctx, fh)
			metrics.EvidenceUploadsTotal.WithLabelValues(metrics.Result(err)).Inc()
			if err != nil {
				slog.Warn("evidence_upload_failed", "file", fh.Filename, "error", err)
				return nil
			}
			links[i] = url
			return nil
		})
	}
	_ = g.Wait()

	return lo.Compact(links)
}

// List returns one page of reports with the viewer's votes filled in.
// A zero viewerID means an anonymous visitor.
func (s *Service) List(ctx context.Context, viewerID int64, f repository.ReportFilter) (*repository.Page[models.ScamReport], error) {
	if f.PageSize <= 0 {
		f.PageSize = ListPageSize
	}
	page, err := s.repo.ListReports(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if err := s.attachVotes(ctx, viewerID, page.Items); err != nil {
		return nil, err
	}
	return page, nil
}

// LatestVerified returns the newest verified reports for the home page.
func (s *Service) LatestVerified(ctx context.Context, n int) ([]models.ScamReport, error) {
	verified := true
	page, err := s.repo.ListReports(ctx, repository.ReportFilter{Verified: &verified, Page: 1, PageSize: n})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return page.Items, nil
}

// MyReports returns the user's own reports.
func (s *Service) MyReports(ctx context.Context, userID int64, page int) (*repository.Page[models.ScamReport], error) {
	return s.List(ctx, userID, repository.ReportFilter{UserID: userID, Page: page, PageSize: MyReportsPageSize})
}

// Pending returns unverified reports for moderation.
func (s *Service) Pending(ctx context.Context, page int) (*repository.Page[models.ScamReport], error) {
	verified := false
	return s.List(ctx, 0, repository.ReportFilter{Verified: &verified, Page: page, PageSize: ModerationPageSize})
}

func (s *Service) attachVotes(ctx context.Context, viewerID int64, items []models.ScamReport) error {
	if viewerID == 0 || len(items) == 0 {
		return nil
	}
	ids := lo.Map(items, func(r models.ScamReport, _ int) int64 { return r.ID })
	votes, err := s.repo.GetUserVotes(ctx, viewerID, ids)
	if err != nil {
		return fmt.Errorf("failed to load votes: %w", err)
	}
	for i := range items {
		items[i].UserVote = votes[items[i].ID]
	}
	return nil
}

// Detail is a report page with its discussion.
type Detail struct {
	Report      *models.ScamReport
	Comments    []models.Comment
	UserComment *models.Comment
}

// Get loads a report with its comments and the viewer's vote and comment.
func (s *Service) Get(ctx context.Context, viewerID, reportID int64) (*Detail, error) {
	report, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report %d: %w", reportID, err)
	}

	comments, err := s.repo.ListComments(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	d := &Detail{Report: report, Comments: comments}
	if viewerID == 0 {
		return d, nil
	}

	if report.UserVote, err = s.repo.GetUserVote(ctx, viewerID, reportID); err != nil {
		return nil, fmt.Errorf("failed to load vote: %w", err)
	}
	for i := range comments {
		if comments[i].UserID == viewerID {
			d.UserComment = &comments[i]
			break
		}
	}
	return d, nil
}

// Vote toggles the user's vote. direction is "up" or "down".
func (s *Service) Vote(ctx context.Context, userID, reportID int64, direction string) (*models.VoteTally, error) {
	var up bool
	switch direction {
	case "up":
		up = true
	case "down":
	default:
		return nil, ErrInvalidDirection
	}

	tally, err := s.repo.CastVote(ctx, userID, reportID, up)
	if err != nil {
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}

	metrics.VotesTotal.WithLabelValues(direction).Inc()
	slog.Info("vote_cast", "report_id", reportID, "user_id", userID, "direction", direction, "user_vote", tally.UserVote)
	return tally, nil
}

func commentErrors(text string) error {
	errs := validation.Errors{}
	if errs.Required("text", text) {
		errs.MaxLength("text", text, MaxCommentLength)
	}
	return errs.Err()
}

// AddComment stores the user's comment. Each user may comment once per report.
func (s *Service) AddComment(ctx context.Context, userID, reportID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if err := commentErrors(text); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetReport(ctx, reportID); err != nil {
		return nil, fmt.Errorf("failed to load report %d: %w", reportID, err)
	}

	c := &models.Comment{UserID: userID, ReportID: reportID, Text: text}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyCommented
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

// EditComment replaces the text of the user's comment.
func (s *Service) EditComment(ctx context.Context, userID, reportID int64, text string) error {
	text = strings.TrimSpace(text)
	if err := commentErrors(text); err != nil {
		return err
	}

	if err := s.repo.UpdateComment(ctx, userID, reportID, text); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoComment
		}
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment on the report. A zero commentID means the
// actor's own comment. Only the author or an admin may delete.
func (s *Service) DeleteComment(ctx context.Context, actor *models.User, reportID, commentID int64) error {
	var (
		c   *models.Comment
		err error
	)
	if commentID == 0 {
		c, err = s.repo.GetUserComment(ctx, actor.ID, reportID)
	} else {
		c, err = s.repo.GetComment(ctx, commentID)
	}
	if errors.Is(err, repository.ErrNotFound) || (err == nil && c.ReportID != reportID) {
		return ErrNoComment
	}
	if err != nil {
		return fmt.Errorf("failed to load comment: %w", err)
	}

	if c.UserID != actor.ID && !actor.IsAdmin {
		return ErrForbidden
	}

	if err := s.repo.DeleteComment(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	slog.Info("comment_deleted", "comment_id", c.ID, "report_id", reportID, "by", actor.ID)
	return nil
}

// Delete removes a report with its votes and comments. Only the author or
// an admin may delete.
func (s *Service) Delete(ctx context.Context, actor *models.User, reportID int64) error {
	report, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to load report %d: %w", reportID, err)
	}
	if report.UserID != actor.ID && !actor.IsAdmin {
		return ErrForbidden
	}

	if err := s.repo.DeleteReport(ctx, reportID); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	slog.Info("report_deleted", "report_id", reportID, "by", actor.ID)
	return nil
}

// Verify marks a report verified by an admin.
func (s *Service) Verify(ctx context.Context, admin *models.User, reportID int64, notes string) error {
	return s.setVerification(ctx, admin, reportID, true, notes)
}

// Unverify clears a report's verification.
func (s *Service) Unverify(ctx context.Context, admin *models.User, reportID int64, notes string) error {
	return s.setVerification(ctx, admin, reportID, false, notes)
}

func (s *Service) setVerification(ctx context.Context, admin *models.User, reportID int64, verified bool, notes string) error {
	if !admin.IsAdmin {
		return ErrForbidden
	}

	notes = strings.TrimSpace(notes)
	errs := validation.Errors{}
	errs.MaxLength("notes", notes, MaxCommentLength)
	if err := errs.Err(); err != nil {
		return err
	}

	if err := s.repo.SetReportVerification(ctx, reportID, admin.ID, verified, notes); err != nil {
		return fmt.Errorf("failed to update verification of report %d: %w", reportID, err)
	}
	slog.Info("report_verification", "report_id", reportID, "verified", verified, "by", admin.ID)
	return nil
}
