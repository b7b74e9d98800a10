package domain

import "strings"

const (
	DefaultPageLimit = 25
	MaxPageLimit     = 100
)

// ListQuery is the paginated/search query of a list endpoint.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	// Filters are extra query parameters (e.g. status, from, to).
	Filters map[string]string
}

// Normalize clamps the page and limit the way the backend does.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultPageLimit
	case q.Limit > MaxPageLimit:
		q.Limit = MaxPageLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// EmptyPage is what a list view shows when a fetch fails.
func EmptyPage[T any](q ListQuery) Page[T] {
	q = q.Normalize()
	return Page[T]{Data: []T{}, Pagination: Pagination{Page: q.Page, Limit: q.Limit}}
}
