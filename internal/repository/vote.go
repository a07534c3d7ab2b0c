// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"github.com/vinovest/sqlx"
)

// CastVote applies a user's up or down vote to a report.
//
// A first vote is stored and counted. Repeating the same direction removes
// the vote; the opposite direction flips it, moving one unit between the
// counters. Everything runs in one transaction with the report row locked.
func (r *Repository) CastVote(ctx context.Context, userID, reportID int64, up bool) (*models.VoteTally, error) {
	var tally models.VoteTally

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var counts struct {
			Upvotes   int `db:"upvotes"`
			Downvotes int `db:"downvotes"`
		}
		if err := tx.GetContext(ctx, &counts,
			r.q(`SELECT upvotes, downvotes FROM scam_reports WHERE id = ?`+r.lockClause()), reportID); err != nil {
			return wrapError(err)
		}

		var existing models.Vote
		err := tx.GetContext(ctx, &existing,
			r.q(`SELECT * FROM votes WHERE user_id = ? AND report_id = ?`), userID, reportID)
		now := time.Now().UTC()

		var dUp, dDown int
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, r.q(
				`INSERT INTO votes (user_id, report_id, is_upvote, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
				userID, reportID, up, now, now); err != nil {
				return wrapError(err)
			}
			dUp, dDown = delta(up, 1)
			tally.UserVote = direction(up)

		case err != nil:
			return err

		case existing.IsUpvote == up:
			if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM votes WHERE id = ?`), existing.ID); err != nil {
				return err
			}
			dUp, dDown = delta(up, -1)
			tally.UserVote = 0

		default:
			if _, err := tx.ExecContext(ctx,
				r.q(`UPDATE votes SET is_upvote = ?, updated_at = ? WHERE id = ?`), up, now, existing.ID); err != nil {
				return err
			}
			dUp, dDown = delta(up, 1)
			oldUp, oldDown := delta(existing.IsUpvote, -1)
			dUp, dDown = dUp+oldUp, dDown+oldDown
			tally.UserVote = direction(up)
		}

		tally.Upvotes = max(counts.Upvotes+dUp, 0)
		tally.Downvotes = max(counts.Downvotes+dDown, 0)

		_, err = tx.ExecContext(ctx,
			r.q(`UPDATE scam_reports SET upvotes = ?, downvotes = ? WHERE id = ?`),
			tally.Upvotes, tally.Downvotes, reportID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tally, nil
}

// delta returns the counter changes for adding n votes in one direction.
func delta(up bool, n int) (int, int) {
	if up {
		return n, 0
	}
	return 0, n
}

func direction(up bool) int {
	if up {
		return 1
	}
	return -1
}

// GetUserVote returns the user's vote on a report: 1, -1 or 0.
func (r *Repository) GetUserVote(ctx context.Context, userID, reportID int64) (int, error) {
	var up bool
	err := r.db.GetContext(ctx, &up,
		r.q(`SELECT is_upvote FROM votes WHERE user_id = ? AND report_id = ?`), userID, reportID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return direction(up), nil
}

// GetUserVotes returns the user's votes on the given reports keyed by report ID.
func (r *Repository) GetUserVotes(ctx context.Context, userID int64, reportIDs []int64) (map[int64]int, error) {
	votes := make(map[int64]int, len(reportIDs))
	if len(reportIDs) == 0 {
		return votes, nil
	}

	query, args, err := sqlx.In(`SELECT report_id, is_upvote FROM votes WHERE user_id = ? AND report_id IN (?)`, userID, reportIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ReportID int64 `db:"report_id"`
		IsUpvote bool  `db:"is_upvote"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.q(query), args...); err != nil {
		return nil, err
	}

	for _, row := range rows {
		votes[row.ReportID] = direction(row.IsUpvote)
	}
	return votes, nil
}

// CountReportVotes returns the number of vote rows for a report.
func (r *Repository) CountReportVotes(ctx context.Context, reportID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.q(`SELECT count(*) FROM votes WHERE report_id = ?`), reportID)
	return count, err
}
