// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	db, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.Same(t, db, repo.DB())
}

func TestPing(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	require.NoError(t, repo.Ping(context.Background()))
}

func TestPage(t *testing.T) {
	tests := []struct {
		name       string
		page       repository.Page[int]
		totalPages int
		hasPrev    bool
		hasNext    bool
	}{
		{"empty", repository.Page[int]{Page: 1, PageSize: 7}, 1, false, false},
		{"single page", repository.Page[int]{Page: 1, PageSize: 7, Total: 7}, 1, false, false},
		{"first of two", repository.Page[int]{Page: 1, PageSize: 7, Total: 8}, 2, false, true},
		{"last of three", repository.Page[int]{Page: 3, PageSize: 10, Total: 21}, 3, true, false},
		{"middle", repository.Page[int]{Page: 2, PageSize: 10, Total: 30}, 3, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.totalPages, tt.page.TotalPages())
			assert.Equal(t, tt.hasPrev, tt.page.HasPrev())
			assert.Equal(t, tt.hasNext, tt.page.HasNext())
			assert.Equal(t, tt.page.Page-1, tt.page.PrevPage())
			assert.Equal(t, tt.page.Page+1, tt.page.NextPage())
		})
	}
}
