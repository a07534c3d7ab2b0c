// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

import (
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/news"
)

// Page data passed in View.Data. Listing pages hold a *repository.Page.

type HomeData struct {
	Reports []models.ScamReport
}

type ReportListData struct { //nolint:govet // fieldalignment not critical
	Page   any
	Types  []models.ScamType
	Search string
	TypeID int64
}

type ReportFormData struct {
	Types []models.ScamType
}

type ReportDetailData struct { //nolint:govet // fieldalignment not critical
	Report      *models.ScamReport
	Comments    []models.Comment
	UserComment *models.Comment
	CanDelete   bool
	CanModerate bool
}

type ListingData struct {
	Page any
}

type NewsData struct {
	Articles    []news.Article
	Unavailable bool
}

type ErrorData struct {
	Code    int
	Title   string
	Message string
}
