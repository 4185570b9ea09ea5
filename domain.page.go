package main

import "fmt"

// PageRequest describes which slice of a result set to return.
// Number is zero-based.
type PageRequest struct {
	Number int `json:"pageNumber"`
	Size   int `json:"pageSize"`
}

// Offset returns the number of records to skip.
func (p PageRequest) Offset() int {
	return p.Number * p.Size
}

// Validate rejects negative page numbers and non-positive sizes.
func (p PageRequest) Validate() error {
	if p.Number < 0 {
		return fmt.Errorf("%w: page number must not be negative", ErrInvalidArgument)
	}
	if p.Size <= 0 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidArgument)
	}
	return nil
}

// Page holds a bounded slice of a result set along with the
// total number of matching records and the request echoed.
type Page[T any] struct {
	Content    []T   `json:"content"`
	Total      int64 `json:"totalElements"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
}

// NewPage builds a page from the given content. A nil content is
// replaced by an empty slice so it is always encoded as an array.
func NewPage[T any](content []T, total int64, req PageRequest) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:    content,
		Total:      total,
		PageNumber: req.Number,
		PageSize:   req.Size,
	}
}

// TotalPages returns how many pages of this size cover the total.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// paginate returns the slice of items covered by the page request.
// It is used by storages which filter records in memory.
func paginate[T any](items []T, page PageRequest) []T {
	start := page.Offset()
	if start < 0 || start >= len(items) || page.Size <= 0 {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
