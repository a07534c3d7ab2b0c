// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshToken_CreateAndGet(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "judy")
	now := time.Now().UTC()

	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "hash-1", now.Add(time.Hour)))

	token, err := repo.GetRefreshToken(ctx, "hash-1", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)

	_, err = repo.GetRefreshToken(ctx, "hash-1", now.Add(2*time.Hour))
	require.ErrorIs(t, err, repository.ErrNotFound, "expired tokens are not returned")

	_, err = repo.GetRefreshToken(ctx, "unknown", now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRotateRefreshToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ken")
	now := time.Now().UTC()

	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "old", now.Add(time.Hour)))

	rotated, err := repo.RotateRefreshToken(ctx, "old", "new", now.Add(2*time.Hour), now, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, user.ID, rotated.UserID)
	assert.Equal(t, "new", rotated.TokenHash)

	_, err = repo.GetRefreshToken(ctx, "old", now)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetRefreshToken(ctx, "new", now)
	require.NoError(t, err)

	_, err = repo.RotateRefreshToken(ctx, "old", "newer", now.Add(time.Hour), now.Add(2*time.Minute), time.Minute)
	require.ErrorIs(t, err, repository.ErrNotFound, "a rotated token cannot be reused after the grace window")
}

func TestRotateRefreshToken_GraceWindow(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "kim")
	now := time.Now().UTC()

	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "old", now.Add(time.Hour)))

	_, err := repo.RotateRefreshToken(ctx, "old", "first", now.Add(2*time.Hour), now, time.Minute)
	require.NoError(t, err)

	second, err := repo.RotateRefreshToken(ctx, "old", "second", now.Add(2*time.Hour), now.Add(10*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "second", second.TokenHash)
	assert.False(t, second.ReplacedAt.Valid)

	for _, h := range []string{"first", "second"} {
		_, err = repo.GetRefreshToken(ctx, h, now)
		require.NoError(t, err, "successor %s stays valid", h)
	}

	_, err = repo.RotateRefreshToken(ctx, "old", "late", now.Add(2*time.Hour), now.Add(61*time.Second), time.Minute)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteRefreshTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "leo")
	now := time.Now().UTC()

	for _, h := range []string{"a", "b", "c"} {
		require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, h, now.Add(time.Hour)))
	}

	require.NoError(t, repo.DeleteRefreshToken(ctx, "a"))
	_, err := repo.GetRefreshToken(ctx, "a", now)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.DeleteUserRefreshTokens(ctx, user.ID))
	_, err = repo.GetRefreshToken(ctx, "b", now)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetRefreshToken(ctx, "c", now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
