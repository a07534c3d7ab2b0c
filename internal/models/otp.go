// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// OTP is a one-time email verification code.
type OTP struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	IsUsed    bool      `db:"is_used" json:"is_used"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RefreshToken stores the SHA256 hash of an issued refresh token.
type RefreshToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64        `db:"id" json:"id"`
	UserID     int64        `db:"user_id" json:"user_id"`
	TokenHash  string       `db:"token_hash" json:"-"`
	ExpiresAt  time.Time    `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	ReplacedAt sql.NullTime `db:"replaced_at" json:"-"` // set once rotated
}
