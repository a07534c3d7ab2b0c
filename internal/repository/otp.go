// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"github.com/vinovest/sqlx"
)

// CreateOTP stores a new one-time code.
func (r *Repository) CreateOTP(ctx context.Context, otp *models.OTP) error {
	now := time.Now().UTC()
	row := r.db.QueryRowxContext(ctx, r.q(
		`INSERT INTO otps (user_id, email, code, expires_at, is_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		otp.UserID, otp.Email, otp.Code, otp.ExpiresAt.UTC(), false, now)
	if err := row.Scan(&otp.ID); err != nil {
		return wrapError(err)
	}
	otp.CreatedAt = now
	return nil
}

// VerifyOTP consumes a matching unexpired, unused code and marks its user
// verified in one transaction. It returns ErrNotFound when no code matches.
func (r *Repository) VerifyOTP(ctx context.Context, email, code string, now time.Time) (*models.OTP, error) {
	var otp models.OTP
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &otp, r.q(
			`SELECT * FROM otps
			 WHERE email = ? AND code = ? AND is_used = ? AND expires_at > ?
			 ORDER BY id DESC LIMIT 1`),
			email, code, false, now.UTC())
		if err != nil {
			return wrapError(err)
		}

		if _, err := tx.ExecContext(ctx, r.q(`UPDATE otps SET is_used = ? WHERE id = ?`), true, otp.ID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			r.q(`UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`),
			true, now.UTC(), otp.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	otp.IsUsed = true
	return &otp, nil
}

// InvalidateUserOTPs marks all unused codes of a user as used.
func (r *Repository) InvalidateUserOTPs(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		r.q(`UPDATE otps SET is_used = ? WHERE user_id = ? AND is_used = ?`), true, userID, false)
	return err
}

// DeleteExpiredOTPs removes codes that expired before now.
func (r *Repository) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM otps WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
