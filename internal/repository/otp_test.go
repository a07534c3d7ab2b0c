// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

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

func newUnverifiedUser(t *testing.T, repo *repository.Repository) *models.User {
	t.Helper()
	user := &models.User{Username: "ivan", Email: "ivan@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func TestVerifyOTP(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := newUnverifiedUser(t, repo)
	now := time.Now().UTC()

	otp := &models.OTP{UserID: user.ID, Email: user.Email, Code: "123456", ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, repo.CreateOTP(ctx, otp))
	assert.NotZero(t, otp.ID)

	got, err := repo.VerifyOTP(ctx, user.Email, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.True(t, got.IsUsed)

	verified, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = repo.VerifyOTP(ctx, user.Email, "123456", now)
	require.ErrorIs(t, err, repository.ErrNotFound, "a code can be used only once")
}

func TestVerifyOTP_Rejects(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := newUnverifiedUser(t, repo)
	now := time.Now().UTC()

	require.NoError(t, repo.CreateOTP(ctx, &models.OTP{
		UserID: user.ID, Email: user.Email, Code: "111111", ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.CreateOTP(ctx, &models.OTP{
		UserID: user.ID, Email: user.Email, Code: "222222", ExpiresAt: now.Add(time.Minute),
	}))

	tests := []struct {
		name  string
		email string
		code  string
	}{
		{"expired", user.Email, "111111"},
		{"wrong code", user.Email, "999999"},
		{"wrong email", "other@example.com", "222222"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.VerifyOTP(ctx, tt.email, tt.code, now)
			require.ErrorIs(t, err, repository.ErrNotFound)
		})
	}

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsVerified)
}

func TestInvalidateUserOTPs(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := newUnverifiedUser(t, repo)
	now := time.Now().UTC()

	require.NoError(t, repo.CreateOTP(ctx, &models.OTP{
		UserID: user.ID, Email: user.Email, Code: "333333", ExpiresAt: now.Add(time.Minute),
	}))
	require.NoError(t, repo.InvalidateUserOTPs(ctx, user.ID))

	_, err := repo.VerifyOTP(ctx, user.Email, "333333", now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteExpiredOTPs(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := newUnverifiedUser(t, repo)
	now := time.Now().UTC()

	require.NoError(t, repo.CreateOTP(ctx, &models.OTP{
		UserID: user.ID, Email: user.Email, Code: "444444", ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, repo.CreateOTP(ctx, &models.OTP{
		UserID: user.ID, Email: user.Email, Code: "555555", ExpiresAt: now.Add(time.Hour),
	}))

	n, err := repo.DeleteExpiredOTPs(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.VerifyOTP(ctx, user.Email, "555555", now)
	require.NoError(t, err)
}
