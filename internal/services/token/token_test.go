// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/token"
	"codeberg.org/oliverandrich/scamsentinel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTConfig(secret string) *config.JWTConfig {
	return &config.JWTConfig{
		Secret:     secret,
		Issuer:     "scamsentinel",
		Audience:   "scamsentinel-web",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func TestIssueAndParse(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestAdmin(t, repo, "alice")
	svc, err := token.NewService(repo, newJWTConfig("secret"), false)
	require.NoError(t, err)

	pair, err := svc.Issue(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.Parse(pair.AccessToken)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.True(t, claims.IsAdmin())
}

func TestParse_Rejects(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "bob")
	ctx := context.Background()

	right, err := token.NewService(repo, newJWTConfig("right-secret"), false)
	require.NoError(t, err)
	wrong, err := token.NewService(repo, newJWTConfig("wrong-secret"), false)
	require.NoError(t, err)

	expiredCfg := newJWTConfig("right-secret")
	expiredCfg.AccessTTL = -time.Minute
	expired, err := token.NewService(repo, expiredCfg, false)
	require.NoError(t, err)

	otherAud := newJWTConfig("right-secret")
	otherAud.Audience = "someone-else"
	foreign, err := token.NewService(repo, otherAud, false)
	require.NoError(t, err)

	wrongPair, err := wrong.Issue(ctx, user)
	require.NoError(t, err)
	expiredPair, err := expired.Issue(ctx, user)
	require.NoError(t, err)
	foreignPair, err := foreign.Issue(ctx, user)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", wrongPair.AccessToken},
		{"expired", expiredPair.AccessToken},
		{"wrong audience", foreignPair.AccessToken},
		{"malformed", "not.a.jwt"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := right.Parse(tt.token)
			require.ErrorIs(t, err, token.ErrInvalidToken)
		})
	}
}

func TestRefresh_Rotates(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "carol")
	ctx := context.Background()
	clock := time.Now()
	svc, err := token.NewService(repo, newJWTConfig("secret"), false,
		token.WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	next, refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.ID)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Parse(next.AccessToken)
	require.NoError(t, err)

	clock = clock.Add(token.RotationGrace + time.Second)

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, token.ErrInvalidRefreshToken, "old refresh token is spent")

	_, _, err = svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Concurrent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "chuck")
	ctx := context.Background()
	svc, err := token.NewService(repo, newJWTConfig("secret"), false)
	require.NoError(t, err)

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	const parallel = 2
	var wg sync.WaitGroup
	pairs := make([]*token.Pair, parallel)
	errs := make([]error, parallel)
	for i := range parallel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pairs[i], _, errs[i] = svc.Refresh(ctx, pair.RefreshToken)
		}()
	}
	wg.Wait()

	for i := range parallel {
		require.NoError(t, errs[i], "request %d keeps its session", i)
	}
	assert.NotEqual(t, pairs[0].RefreshToken, pairs[1].RefreshToken)

	for _, p := range pairs {
		_, _, err := svc.Refresh(ctx, p.RefreshToken)
		require.NoError(t, err, "every successor is usable")
	}
}

func TestRefresh_Invalid(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc, err := token.NewService(repo, newJWTConfig("secret"), false)
	require.NoError(t, err)

	_, _, err = svc.Refresh(context.Background(), "")
	require.ErrorIs(t, err, token.ErrInvalidRefreshToken)

	_, _, err = svc.Refresh(context.Background(), "unknown")
	require.ErrorIs(t, err, token.ErrInvalidRefreshToken)
}

func TestRevoke(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "dave")
	ctx := context.Background()
	svc, err := token.NewService(repo, newJWTConfig("secret"), false)
	require.NoError(t, err)

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, svc.Revoke(ctx, ""))

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, token.ErrInvalidRefreshToken)
}

func TestCookies(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc, err := token.NewService(repo, newJWTConfig("secret"), true)
	require.NoError(t, err)

	cookies := svc.Cookies(&token.Pair{AccessToken: "a", RefreshToken: "r"})
	require.Len(t, cookies, 2)
	assert.Equal(t, token.AccessCookieName, cookies[0].Name)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, token.RefreshCookieName, cookies[1].Name)
	assert.Equal(t, 7*24*3600, cookies[1].MaxAge)
	for _, c := range cookies {
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
	}

	for _, c := range svc.ClearCookies() {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestNewService_GeneratesSecret(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "erin")

	svc, err := token.NewService(repo, newJWTConfig(""), false)
	require.NoError(t, err)

	pair, err := svc.Issue(context.Background(), user)
	require.NoError(t, err)
	_, err = svc.Parse(pair.AccessToken)
	require.NoError(t, err)
}

func TestHashToken(t *testing.T) {
	h := token.HashToken("abc")

	assert.Len(t, h, 64)
	assert.Equal(t, h, token.HashToken("abc"))
	assert.NotEqual(t, h, token.HashToken("abd"))
}
