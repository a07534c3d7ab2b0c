// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
)

// CreateComment inserts a comment. A second comment by the same user on the
// same report yields ErrDuplicate.
func (r *Repository) CreateComment(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	row := r.db.QueryRowxContext(ctx, r.q(
		`INSERT INTO comments (user_id, report_id, text, is_edited, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		c.UserID, c.ReportID, c.Text, false, now, now)
	if err := row.Scan(&c.ID); err != nil {
		return wrapError(err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// GetUserComment returns the user's comment on a report.
func (r *Repository) GetUserComment(ctx context.Context, userID, reportID int64) (*models.Comment, error) {
	var c models.Comment
	err := r.db.GetContext(ctx, &c, r.q(
		`SELECT c.*, u.username FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.user_id = ? AND c.report_id = ?`), userID, reportID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// GetComment returns a comment by ID.
func (r *Repository) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	var c models.Comment
	err := r.db.GetContext(ctx, &c, r.q(
		`SELECT c.*, u.username FROM comments c JOIN users u ON u.id = c.user_id WHERE c.id = ?`), id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// ListComments returns a report's comments, oldest first.
func (r *Repository) ListComments(ctx context.Context, reportID int64) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.SelectContext(ctx, &comments, r.q(
		`SELECT c.*, u.username FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.report_id = ? ORDER BY c.created_at, c.id`), reportID)
	return comments, err
}

// UpdateComment replaces the text of the user's comment and marks it edited.
func (r *Repository) UpdateComment(ctx context.Context, userID, reportID int64, text string) error {
	res, err := r.db.ExecContext(ctx, r.q(
		`UPDATE comments SET text = ?, is_edited = ?, updated_at = ? WHERE user_id = ? AND report_id = ?`),
		text, true, time.Now().UTC(), userID, reportID)
	return affectedOne(res, err)
}

// DeleteComment removes a comment by ID.
func (r *Repository) DeleteComment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM comments WHERE id = ?`), id)
	return affectedOne(res, err)
}
