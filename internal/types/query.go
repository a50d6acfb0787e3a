package types

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// PerPage is the fixed page size of the employee list.
const PerPage = 10

// MaxPage is the largest page number whose offset, (page-1)*PerPage,
// still fits in an int. Larger requests are served as MaxPage, which is
// far past any real last page and therefore empty.
const MaxPage = math.MaxInt / PerPage

// SortField is one of the columns the list may be ordered by.
// The zero value means "no explicit order".
type SortField string

const (
	SortNone      SortField = ""
	SortName      SortField = "name"
	SortAge       SortField = "age"
	SortPosition  SortField = "position"
	SortHiredDate SortField = "hired_date"
	SortCreatedAt SortField = "created_at"
)

// ParseSortField maps a query-string value onto a SortField.
// Unknown values fall back to SortNone instead of failing the request.
func ParseSortField(raw string) SortField {
	switch f := SortField(strings.TrimSpace(raw)); f {
	case SortName, SortAge, SortPosition, SortHiredDate, SortCreatedAt:
		return f
	default:
		return SortNone
	}
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection defaults to ascending for anything but "desc".
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// ParsePage returns the 1-based page number, or 1 when raw is missing,
// malformed or below 1. Numbers above MaxPage, including ones too large
// for an int, become MaxPage.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	page, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		return MaxPage
	case err != nil || page < 1:
		return 1
	case page > MaxPage:
		return MaxPage
	}
	return page
}

// ListQuery is the normalised input of the list operation.
type ListQuery struct {
	Search        string
	SortBy        SortField
	SortDirection SortDirection
	Page          int
}

// Offset is the number of rows to skip for q.Page.
func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (min(q.Page, MaxPage) - 1) * PerPage
}

// Page is one page of employees plus the metadata the table needs to
// draw its navigation. The JSON shape follows the classic paginator
// payload (data, current_page, last_page, links, ...).
type Page struct {
	Data        []Employee `json:"data"`
	CurrentPage int        `json:"current_page"`
	LastPage    int        `json:"last_page"`
	PerPage     int        `json:"per_page"`
	Total       int        `json:"total"`
	From        int        `json:"from"`
	To          int        `json:"to"`
	Path        string     `json:"path"`
	FirstURL    string     `json:"first_page_url"`
	LastURL     string     `json:"last_page_url"`
	PrevURL     *string    `json:"prev_page_url"`
	NextURL     *string    `json:"next_page_url"`
	Links       []PageLink `json:"links"`
}

// PageLink is one entry of the numbered navigation. URL is nil for
// disabled entries (Previous on page 1, the "..." separators).
type PageLink struct {
	URL    *string `json:"url"`
	Label  string  `json:"label"`
	Active bool    `json:"active"`
}
