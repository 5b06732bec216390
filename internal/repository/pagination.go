package repository

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest asks for one page of the admin user listing. Zero values fall
// back to the defaults and oversized pages are capped.
type PageRequest struct {
	Page     int
	PageSize int
}

func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	switch {
	case r.PageSize < 1:
		r.PageSize = DefaultPageSize
	case r.PageSize > MaxPageSize:
		r.PageSize = MaxPageSize
	}
	return r
}

// Offset is the number of rows before the page. Call it on a normalized request.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

type PageResult[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

func NewPageResult[T any](items []T, req PageRequest, total int64) PageResult[T] {
	pages := 0
	if total > 0 && req.PageSize > 0 {
		pages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	}
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Items: items, Page: req.Page, PageSize: req.PageSize, Total: total, TotalPages: pages}
}
