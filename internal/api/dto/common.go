package dto

import "time"

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// Page is one page of a listing endpoint.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// NewPage wraps items fetched with p. A nil slice encodes as an empty list.
func NewPage[T any](items []T, total int64, p PaginationParams) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Data:       items,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages(total),
	}
}

type PaginationParams struct {
	Page    int
	PerPage int
}

func (p *PaginationParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 20
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
}

func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// TotalPages is the number of pages needed for total items.
func (p *PaginationParams) TotalPages(total int64) int {
	if p.PerPage < 1 {
		return 0
	}
	return int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
