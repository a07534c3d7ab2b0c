// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MaxEvidenceLinks is the number of evidence slots on a report.
const MaxEvidenceLinks = 5

// ScamType is a report category.
type ScamType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ScammerInfo holds what the reporter knows about the scammer.
// It is stored as a JSON document.
type ScammerInfo struct {
	Phone        string `json:"phone,omitempty"`
	WhatsApp     string `json:"whatsapp,omitempty"`
	Email        string `json:"email,omitempty"`
	FacebookURL  string `json:"facebook_url,omitempty"`
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// IsEmpty reports whether no scammer detail was provided.
func (s ScammerInfo) IsEmpty() bool {
	return s == ScammerInfo{}
}

// Value implements driver.Valuer.
func (s ScammerInfo) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *ScammerInfo) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = ScammerInfo{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scammer info: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = ScammerInfo{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// ScamReport is a community scam report.
type ScamReport struct { //nolint:govet // fieldalignment: readability over optimization
	ID                int64          `db:"id" json:"id"`
	UserID            int64          `db:"user_id" json:"user_id"`
	ScamTypeID        int64          `db:"scam_type_id" json:"scam_type_id"`
	Title             string         `db:"title" json:"title"`
	Description       string         `db:"description" json:"description"`
	ScammerInfo       ScammerInfo    `db:"scammer_info" json:"scammer_info"`
	LossAmount        float64        `db:"loss_amount" json:"loss_amount"`
	Currency          string         `db:"currency" json:"currency"`
	Location          string         `db:"location" json:"location"`
	OccurrenceDate    sql.NullTime   `db:"occurrence_date" json:"-"`
	Upvotes           int            `db:"upvotes" json:"upvotes"`
	Downvotes         int            `db:"downvotes" json:"downvotes"`
	IsVerified        bool           `db:"is_verified" json:"is_verified"`
	VerifiedBy        sql.NullInt64  `db:"verified_by" json:"-"`
	VerifiedAt        sql.NullTime   `db:"verified_at" json:"-"`
	VerificationNotes string         `db:"verification_notes" json:"verification_notes"`
	EvidenceLink1     sql.NullString `db:"evidence_link_1" json:"-"`
	EvidenceLink2     sql.NullString `db:"evidence_link_2" json:"-"`
	EvidenceLink3     sql.NullString `db:"evidence_link_3" json:"-"`
	EvidenceLink4     sql.NullString `db:"evidence_link_4" json:"-"`
	EvidenceLink5     sql.NullString `db:"evidence_link_5" json:"-"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`

	// Joined columns, empty unless the query selects them.
	ScamTypeName string `db:"scam_type_name" json:"scam_type"`
	AuthorName   string `db:"author_name" json:"author"`

	// UserVote is the viewer's vote: 1, -1 or 0.
	UserVote int `db:"-" json:"user_vote"`
}

// EvidenceLinks returns the filled evidence slots in order.
func (r *ScamReport) EvidenceLinks() []string {
	var links []string
	for _, slot := range r.evidenceSlots() {
		if slot.Valid && slot.String != "" {
			links = append(links, slot.String)
		}
	}
	return links
}

// SetEvidenceLinks fills the evidence slots in order. Extra links are dropped.
func (r *ScamReport) SetEvidenceLinks(links []string) {
	for i, slot := range r.evidenceSlots() {
		if i < len(links) && links[i] != "" {
			*slot = sql.NullString{String: links[i], Valid: true}
		} else {
			*slot = sql.NullString{}
		}
	}
}

func (r *ScamReport) evidenceSlots() [MaxEvidenceLinks]*sql.NullString {
	return [MaxEvidenceLinks]*sql.NullString{
		&r.EvidenceLink1, &r.EvidenceLink2, &r.EvidenceLink3, &r.EvidenceLink4, &r.EvidenceLink5,
	}
}

// VoteScore is upvotes minus downvotes.
func (r *ScamReport) VoteScore() int {
	return r.Upvotes - r.Downvotes
}
