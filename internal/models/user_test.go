// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"

	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Role(t *testing.T) {
	assert.Equal(t, models.RoleUser, (&models.User{}).Role())
	assert.Equal(t, models.RoleAdmin, (&models.User{IsAdmin: true}).Role())
}

func TestScamReport_EvidenceLinks(t *testing.T) {
	r := &models.ScamReport{}

	r.SetEvidenceLinks([]string{"https://a", "", "https://c", "https://d", "https://e", "https://f", "https://g"})

	// Empty entries leave their slot empty; links past the fifth slot are dropped.
	assert.Equal(t, []string{"https://a", "https://c", "https://d", "https://e"}, r.EvidenceLinks())
	assert.False(t, r.EvidenceLink2.Valid)
	assert.Equal(t, "https://e", r.EvidenceLink5.String)

	r.SetEvidenceLinks(nil)
	assert.Empty(t, r.EvidenceLinks())
}

func TestScammerInfo_RoundTrip(t *testing.T) {
	in := models.ScammerInfo{Phone: "+15551234567", Name: "John"}

	v, err := in.Value()
	require.NoError(t, err)

	var fromString, fromBytes models.ScammerInfo
	require.NoError(t, fromString.Scan(v))
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))

	assert.Equal(t, in, fromString)
	assert.Equal(t, in, fromBytes)
}

func TestScammerInfo_ScanEmpty(t *testing.T) {
	s := models.ScammerInfo{Name: "stale"}

	require.NoError(t, s.Scan(nil))
	assert.True(t, s.IsEmpty())

	require.NoError(t, s.Scan([]byte{}))
	assert.True(t, s.IsEmpty())

	assert.Error(t, s.Scan(42))
}

func TestVote_Direction(t *testing.T) {
	assert.Equal(t, 1, (&models.Vote{IsUpvote: true}).Direction())
	assert.Equal(t, -1, (&models.Vote{}).Direction())
}
