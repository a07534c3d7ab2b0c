// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "sybil")
	now := time.Now().UTC()

	require.NoError(t, repo.CreateOTP(ctx, &models.OTP{
		UserID: user.ID, Email: user.Email, Code: "111111", ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "expired-hash", now.Add(-time.Minute)))
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "live-hash", now.Add(time.Hour)))

	sweep(ctx, repo, now)

	_, err := repo.GetRefreshToken(ctx, "live-hash", now)
	require.NoError(t, err)

	n, err := repo.DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "expired token already swept")

	n, err = repo.DeleteExpiredOTPs(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "expired code already swept")

	_, err = repo.GetRefreshToken(ctx, "expired-hash", now.Add(-2*time.Minute))
	require.ErrorIs(t, err, repository.ErrNotFound)
}
