// Package pagination normalizes page/limit/order query parameters for list endpoints.
package pagination

import (
	"strings"

	"retail-backend/internal/apperror"
)

const (
	DefaultLimit = 10
	// MaxPage keeps (page-1)*limit far from integer overflow.
	MaxPage = 1_000_000
)

type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// TotalPages is ceil(total/limit).
func (p Page) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// Bounds applies defaults (page 1, DefaultLimit) and caps limit at max. Zero means "not given".
func Bounds(page, limit, max int) (Page, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if page < 1 {
		return Page{}, apperror.InvalidArgument("page must be at least 1")
	}
	if page > MaxPage {
		return Page{}, apperror.InvalidArgument("page is too large")
	}
	if limit < 1 {
		return Page{}, apperror.InvalidArgument("limit must be at least 1")
	}
	if max > 0 && limit > max {
		limit = max
	}
	return Page{Page: page, Limit: limit}, nil
}

// Descending parses an order parameter; empty means descending.
func Descending(order string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
		return true, nil
	case "asc":
		return false, nil
	default:
		return false, apperror.InvalidArgument("order must be asc or desc")
	}
}
