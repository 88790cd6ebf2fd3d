// Package paging implements offset pagination for controller list queries.
package paging

import "gorm.io/gorm"

const (
	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25
	// MaxPageSize is the largest accepted page size.
	MaxPageSize = 100
)

// Params is a requested page. Zero values select the first page of DefaultPageSize.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps p into the accepted range.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}

	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		p.PageSize = DefaultPageSize
	}

	return p
}

// Result is one page of T.
type Result[T any] struct {
	Items      []T
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// HasPrev reports whether a previous page exists.
func (r Result[T]) HasPrev() bool { return r.Page > 1 }

// HasNext reports whether a next page exists.
func (r Result[T]) HasNext() bool { return r.Page < r.TotalPages }

// PrevPage is the number of the previous page.
func (r Result[T]) PrevPage() int { return r.Page - 1 }

// NextPage is the number of the next page.
func (r Result[T]) NextPage() int { return r.Page + 1 }

// TotalPages computes the page count for total items, at least 1, and moves
// page into range.
func TotalPages(total int64, pageSize, page int) (int, int) {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return totalPages, page
}

// Find counts the rows of query, then loads the requested page into a Result.
// query must carry its model and filters; ordering is applied by the caller.
// preloads are applied to the page query only.
func Find[T any](query *gorm.DB, p Params, preloads ...string) (Result[T], error) {
	p = p.Normalize()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Result[T]{}, err //nolint:wrapcheck
	}

	totalPages, page := TotalPages(total, p.PageSize, p.Page)

	res := Result[T]{
		Total:      total,
		Page:       page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
	}

	pq := query.Offset((page - 1) * p.PageSize).Limit(p.PageSize)
	for _, name := range preloads {
		pq = pq.Preload(name)
	}

	if err := pq.Find(&res.Items).Error; err != nil {
		return Result[T]{}, err //nolint:wrapcheck
	}

	if res.Items == nil {
		res.Items = []T{}
	}

	return res, nil
}
