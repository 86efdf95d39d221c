package services

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the number of listings per page
const PageSize = 12

// MaxPage is the highest page whose offset still fits in an int
const MaxPage = math.MaxInt / PageSize

// Pagination describes the window of a paginated listing query
type Pagination struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"pageSize"`
	Total        int64 `json:"total"`
	TotalPages   int   `json:"totalPages"`
	ShowControls bool  `json:"showControls"`
}

// Paginate derives the page window from a total count and a requested page.
// Pages past the last one are allowed and simply select no rows.
func Paginate(total int64, page int) Pagination {
	page = clampPage(page)
	if total < 0 {
		total = 0
	}

	totalPages := int((total + PageSize - 1) / PageSize)

	return Pagination{
		Page:         page,
		PageSize:     PageSize,
		Total:        total,
		TotalPages:   totalPages,
		ShowControls: totalPages > 1,
	}
}

// Offset is the number of rows skipped before the page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit is the number of rows taken for the page
func (p Pagination) Limit() int {
	return p.PageSize
}

// HasPrev reports whether a previous page exists
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a following page exists
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// ParsePage coerces a raw page parameter to a 1-based page number. Missing,
// zero, negative and non-numeric values all become 1. Values too large to
// address a row become MaxPage, which is past the end of any result.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
			return MaxPage
		}
		return 1
	}
	return clampPage(page)
}

func clampPage(page int) int {
	switch {
	case page < 1:
		return 1
	case page > MaxPage:
		return MaxPage
	}
	return page
}

// PageQuery returns the query string for another page, keeping every other
// parameter as it is.
func PageQuery(values url.Values, page int) string {
	next := cloneValues(values)
	if page <= 1 {
		next.Del("page")
	} else {
		next.Set("page", strconv.Itoa(page))
	}
	return next.Encode()
}

// FilterQuery returns the query string after changing one filter. Any filter
// change invalidates the current page, so page is dropped. An empty value or
// a "no filter" sentinel clears the filter; changing departamento also
// clears ciudad since cities belong to a department.
func FilterQuery(values url.Values, key, value string) string {
	next := cloneValues(values)
	next.Del("page")

	if key == "departamento" {
		next.Del("ciudad")
	}

	if value == "" || isNoFilterSentinel(key, value) {
		next.Del(key)
	} else {
		next.Set(key, value)
	}
	return next.Encode()
}

func cloneValues(values url.Values) url.Values {
	next := make(url.Values, len(values))
	for k, v := range values {
		next[k] = append([]string(nil), v...)
	}
	return next
}
