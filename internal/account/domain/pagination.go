package domain

// Pagination defaults and bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageOptions carries list pagination parameters, already clamped.
type PageOptions struct {
	Limit  int
	Offset int
}

// ClampPage normalizes raw limit/offset values into a valid PageOptions.
func ClampPage(limit, offset int) PageOptions {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return PageOptions{Limit: limit, Offset: offset}
}

// Page is a paginated slice of results with the total row count.
type Page[T any] struct {
	Items  []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
