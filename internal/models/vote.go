// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Vote is a user's single up or down vote on a report.
type Vote struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ReportID  int64     `db:"report_id" json:"report_id"`
	IsUpvote  bool      `db:"is_upvote" json:"is_upvote"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Direction returns 1 for an upvote and -1 for a downvote.
func (v *Vote) Direction() int {
	if v.IsUpvote {
		return 1
	}
	return -1
}

// VoteTally is a report's counters after a vote, plus the voter's current state.
type VoteTally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	UserVote  int `json:"userVote"`
}

// Comment is a user's single comment on a report.
type Comment struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ReportID  int64     `db:"report_id" json:"report_id"`
	Text      string    `db:"text" json:"text"`
	IsEdited  bool      `db:"is_edited" json:"is_edited"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Username string `db:"username" json:"username"`
}
