package utils

import (
	"strconv"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// Pagination is the offset window requested by ?page=&resultsPerPage=.
type Pagination struct {
	Page    int
	PerPage int
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NewPagination clamps raw query values: page starts at 1, perPage falls
// back to DefaultPerPage and never exceeds MaxPerPage.
func NewPagination(page, perPage string) Pagination {
	p := Pagination{Page: 1, PerPage: DefaultPerPage}
	if n := StringToInt(page); n > 0 {
		p.Page = n
	}
	if n := StringToInt(perPage); n > 0 {
		p.PerPage = n
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
