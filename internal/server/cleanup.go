// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"log/slog"
	"time"
)

const cleanupInterval = time.Hour

// Sweeper removes expired one-time codes and refresh tokens.
type Sweeper interface {
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// sweep runs a single cleanup pass.
func sweep(ctx context.Context, s Sweeper, now time.Time) {
	otps, err := s.DeleteExpiredOTPs(ctx, now)
	if err != nil {
		slog.Error("failed to delete expired OTPs", "error", err)
	}
	tokens, err := s.DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		slog.Error("failed to delete expired refresh tokens", "error", err)
	}
	if otps > 0 || tokens > 0 {
		slog.Info("cleanup", "otps", otps, "refresh_tokens", tokens)
	}
}

// startCleanup sweeps once and then every interval until ctx is done.
func startCleanup(ctx context.Context, s Sweeper, interval time.Duration) {
	go func() {
		sweep(ctx, s, time.Now())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sweep(ctx, s, now)
			}
		}
	}()
}
