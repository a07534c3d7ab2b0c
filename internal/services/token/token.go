// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues JWT access tokens and rotating refresh tokens.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

// Cookie names.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

const refreshTokenBytes = 32

// RotationGrace is how long a rotated refresh token may still be exchanged.
// Parallel requests that carry the same expired access token then all get a
// session instead of racing each other.
const RotationGrace = 30 * time.Second

var (
	// ErrInvalidToken is returned for malformed, forged or expired access tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidRefreshToken is returned for unknown, used or expired refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Claims are the access token claims.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID returns the subject as a user ID.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// Pair bundles a short-lived access token and a long-lived refresh token.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Service signs and verifies tokens.
type Service struct {
	repo   *repository.Repository
	cfg    *config.JWTConfig
	secret []byte
	secure bool
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service. An empty secret is replaced with a
// random one, which invalidates all tokens on restart.
func NewService(repo *repository.Repository, cfg *config.JWTConfig, secure bool, opts ...Option) (*Service, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
	}

	s := &Service{
		repo:   repo,
		cfg:    cfg,
		secret: secret,
		secure: secure,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a token pair for the user and stores the refresh token hash.
func (s *Service) Issue(ctx context.Context, user *models.User) (*Pair, error) {
	now := s.now()

	access, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	refresh, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.repo.CreateRefreshToken(ctx, user.ID, HashToken(refresh), refreshExpires); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.cfg.AccessTTL),
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// Refresh rotates a refresh token and issues a new pair. The old refresh
// token is unusable afterwards.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, *models.User, error) {
	if refreshToken == "" {
		return nil, nil, ErrInvalidRefreshToken
	}

	now := s.now()
	next, err := generateRefreshToken()
	if err != nil {
		return nil, nil, err
	}

	refreshExpires := now.Add(s.cfg.RefreshTTL)
	stored, err := s.repo.RotateRefreshToken(ctx, HashToken(refreshToken), HashToken(next), refreshExpires, now, RotationGrace)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, stored.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, nil, err
	}

	access, err := s.signAccess(user, now)
	if err != nil {
		return nil, nil, err
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     next,
		AccessExpiresAt:  now.Add(s.cfg.AccessTTL),
		RefreshExpiresAt: refreshExpires,
	}, user, nil
}

// Revoke deletes a refresh token. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, HashToken(refreshToken))
}

// Parse verifies an access token and returns its claims.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) signAccess(user *models.User, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
		Name:  user.Username,
		Email: user.Email,
		Role:  user.Role(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Cookies returns the access and refresh cookies for a pair.
func (s *Service) Cookies(p *Pair) []*http.Cookie {
	return []*http.Cookie{
		s.cookie(AccessCookieName, p.AccessToken, int(s.cfg.AccessTTL.Seconds())),
		s.cookie(RefreshCookieName, p.RefreshToken, int(s.cfg.RefreshTTL.Seconds())),
	}
}

// ClearCookies returns cookies that delete both tokens.
func (s *Service) ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		s.cookie(AccessCookieName, "", -1),
		s.cookie(RefreshCookieName, "", -1),
	}
}

func (s *Service) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func generateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
