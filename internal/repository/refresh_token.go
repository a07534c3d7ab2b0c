// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"github.com/vinovest/sqlx"
)

// CreateRefreshToken stores a hashed refresh token.
func (r *Repository) CreateRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, r.q(
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`),
		userID, tokenHash, expiresAt.UTC(), time.Now().UTC())
	return wrapError(err)
}

// GetRefreshToken returns an unexpired, unrotated refresh token by hash.
func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.GetContext(ctx, &token,
		r.q(`SELECT * FROM refresh_tokens WHERE token_hash = ? AND expires_at > ? AND replaced_at IS NULL`),
		tokenHash, now.UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// RotateRefreshToken stores newHash as the successor of oldHash and marks
// oldHash as replaced. A token replaced less than grace ago may be rotated
// again, so concurrent requests carrying the same cookie each get a valid
// successor. It returns ErrNotFound when oldHash is expired, revoked or was
// replaced before the grace window.
func (r *Repository) RotateRefreshToken(ctx context.Context, oldHash, newHash string, expiresAt, now time.Time, grace time.Duration) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &token,
			r.q(`SELECT * FROM refresh_tokens WHERE token_hash = ? AND expires_at > ?`+r.lockClause()),
			oldHash, now.UTC()); err != nil {
			return wrapError(err)
		}

		switch {
		case !token.ReplacedAt.Valid:
			if _, err := tx.ExecContext(ctx,
				r.q(`UPDATE refresh_tokens SET replaced_at = ? WHERE id = ?`), now.UTC(), token.ID); err != nil {
				return err
			}
		case now.Sub(token.ReplacedAt.Time) > grace:
			return ErrNotFound
		}

		_, err := tx.ExecContext(ctx, r.q(
			`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`),
			token.UserID, newHash, expiresAt.UTC(), now.UTC())
		if err != nil {
			return wrapError(err)
		}
		token.TokenHash, token.ExpiresAt, token.CreatedAt = newHash, expiresAt.UTC(), now.UTC()
		token.ReplacedAt.Valid = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteRefreshToken revokes a single refresh token.
func (r *Repository) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, r.q(`DELETE FROM refresh_tokens WHERE token_hash = ?`), tokenHash)
	return err
}

// DeleteUserRefreshTokens revokes every refresh token of a user.
func (r *Repository) DeleteUserRefreshTokens(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, r.q(`DELETE FROM refresh_tokens WHERE user_id = ?`), userID)
	return err
}

// DeleteExpiredRefreshTokens removes tokens that expired before now.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM refresh_tokens WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
