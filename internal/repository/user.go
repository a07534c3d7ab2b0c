// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
)

// CreateUser inserts a user and fills in its ID and timestamps.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	row := r.db.QueryRowxContext(ctx, r.q(
		`INSERT INTO users (username, email, password_hash, contact_number, is_verified, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		user.Username, user.Email, user.PasswordHash, user.ContactNumber, user.IsVerified, user.IsAdmin, now, now)
	if err := row.Scan(&user.ID); err != nil {
		return wrapError(err)
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, r.q(`SELECT * FROM users WHERE id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, r.q(`SELECT * FROM users WHERE email = ?`), email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, r.q(`SELECT * FROM users WHERE username = ?`), username); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UsernameTaken reports whether another user already uses the username.
func (r *Repository) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		r.q(`SELECT count(*) FROM users WHERE username = ? AND id <> ?`), username, exceptID)
	return count > 0, err
}

// EmailTaken reports whether a user with the email exists.
func (r *Repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.q(`SELECT count(*) FROM users WHERE email = ?`), email)
	return count > 0, err
}

// UpdateUserProfile updates the editable profile fields.
func (r *Repository) UpdateUserProfile(ctx context.Context, id int64, username, contactNumber string) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE users SET username = ?, contact_number = ?, updated_at = ? WHERE id = ?`),
		username, contactNumber, time.Now().UTC(), id)
	return affectedOne(res, err)
}

// UpdateUserPassword replaces a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		passwordHash, time.Now().UTC(), id)
	return affectedOne(res, err)
}

// SetUserAdmin sets or removes admin status for a user.
func (r *Repository) SetUserAdmin(ctx context.Context, id int64, isAdmin bool) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?`),
		isAdmin, time.Now().UTC(), id)
	return affectedOne(res, err)
}

// CountAdmins returns the number of admin users.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, r.q(`SELECT count(*) FROM users WHERE is_admin = ?`), true)
	return count, err
}

// CountUsers returns the total number of users.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM users`)
	return count, err
}
