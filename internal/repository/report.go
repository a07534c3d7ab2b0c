// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"github.com/vinovest/sqlx"
)

const reportSelect = `SELECT r.*, t.name AS scam_type_name, u.username AS author_name
	FROM scam_reports r
	JOIN scam_types t ON t.id = r.scam_type_id
	JOIN users u ON u.id = r.user_id`

// ReportFilter narrows a report listing.
type ReportFilter struct { //nolint:govet // fieldalignment not critical
	Search     string
	ScamTypeID int64
	UserID     int64
	Verified   *bool
	Page       int
	PageSize   int
}

func (f ReportFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		clauses = append(clauses, `(LOWER(r.title) LIKE ? ESCAPE '\' OR LOWER(r.description) LIKE ? ESCAPE '\' OR LOWER(CAST(r.scammer_info AS TEXT)) LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p)
	}
	if f.ScamTypeID > 0 {
		clauses = append(clauses, `r.scam_type_id = ?`)
		args = append(args, f.ScamTypeID)
	}
	if f.UserID > 0 {
		clauses = append(clauses, `r.user_id = ?`)
		args = append(args, f.UserID)
	}
	if f.Verified != nil {
		clauses = append(clauses, `r.is_verified = ?`)
		args = append(args, *f.Verified)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListScamTypes returns all scam types ordered by name.
func (r *Repository) ListScamTypes(ctx context.Context) ([]models.ScamType, error) {
	var types []models.ScamType
	err := r.db.SelectContext(ctx, &types, `SELECT id, name FROM scam_types ORDER BY name`)
	return types, err
}

// GetScamType returns a scam type by ID.
func (r *Repository) GetScamType(ctx context.Context, id int64) (*models.ScamType, error) {
	var st models.ScamType
	if err := r.db.GetContext(ctx, &st, r.q(`SELECT id, name FROM scam_types WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &st, nil
}

// CreateReport inserts a report and fills in its ID and timestamps.
func (r *Repository) CreateReport(ctx context.Context, report *models.ScamReport) error {
	now := time.Now().UTC()
	row := r.db.QueryRowxContext(ctx, r.q(
		`INSERT INTO scam_reports (
			user_id, scam_type_id, title, description, scammer_info,
			loss_amount, currency, location, occurrence_date,
			evidence_link_1, evidence_link_2, evidence_link_3, evidence_link_4, evidence_link_5,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		report.UserID, report.ScamTypeID, report.Title, report.Description, report.ScammerInfo,
		report.LossAmount, report.Currency, report.Location, report.OccurrenceDate,
		report.EvidenceLink1, report.EvidenceLink2, report.EvidenceLink3, report.EvidenceLink4, report.EvidenceLink5,
		now, now)
	if err := row.Scan(&report.ID); err != nil {
		return wrapError(err)
	}
	report.CreatedAt, report.UpdatedAt = now, now
	return nil
}

// GetReport returns a report with its type and author names.
func (r *Repository) GetReport(ctx context.Context, id int64) (*models.ScamReport, error) {
	var report models.ScamReport
	if err := r.db.GetContext(ctx, &report, r.q(reportSelect+` WHERE r.id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &report, nil
}

// ListReports returns one page of reports, newest first.
func (r *Repository) ListReports(ctx context.Context, f ReportFilter) (*Page[models.ScamReport], error) {
	page, size := normalizePage(f.Page, f.PageSize)
	where, args := f.where()

	var total int
	if err := r.db.GetContext(ctx, &total, r.q(`SELECT count(*) FROM scam_reports r`+where), args...); err != nil {
		return nil, err
	}

	items := []models.ScamReport{}
	query := reportSelect + where + ` ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`
	pageArgs := append(append([]any{}, args...), size, (page-1)*size)
	if err := r.db.SelectContext(ctx, &items, r.q(query), pageArgs...); err != nil {
		return nil, err
	}

	return &Page[models.ScamReport]{Items: items, Page: page, PageSize: size, Total: total}, nil
}

// SetReportVerification verifies or unverifies a report.
func (r *Repository) SetReportVerification(ctx context.Context, reportID, verifierID int64, verified bool, notes string) error {
	now := time.Now().UTC()
	var (
		res sql.Result
		err error
	)
	if verified {
		res, err = r.db.ExecContext(ctx, r.q(
			`UPDATE scam_reports
			 SET is_verified = ?, verified_by = ?, verified_at = ?, verification_notes = ?, updated_at = ?
			 WHERE id = ?`),
			true, verifierID, now, notes, now, reportID)
	} else {
		res, err = r.db.ExecContext(ctx, r.q(
			`UPDATE scam_reports
			 SET is_verified = ?, verified_by = NULL, verified_at = NULL, verification_notes = ?, updated_at = ?
			 WHERE id = ?`),
			false, notes, now, reportID)
	}
	return affectedOne(res, err)
}

// DeleteReport removes a report together with its votes and comments.
func (r *Repository) DeleteReport(ctx context.Context, reportID int64) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM votes WHERE report_id = ?`), reportID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM comments WHERE report_id = ?`), reportID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, r.q(`DELETE FROM scam_reports WHERE id = ?`), reportID)
		return affectedOne(res, err)
	})
}
