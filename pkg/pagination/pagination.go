// Package pagination pages the in-memory collections held by the domain
// stores and shapes the list envelope every list endpoint returns.
package pagination

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string, clamping limit
// to MaxLimit and falling back to DefaultLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return Params{Limit: limit, Offset: max(offset, 0)}
}

// Response is one page of a cached collection. Stale is set when the last
// refresh failed and Data comes from the previous cache; Error then carries
// the failure message.
type Response[T any] struct {
	Data    []T    `json:"data"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
	Loading bool   `json:"loading"`
	Stale   bool   `json:"stale,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Of cuts the page p out of items.
func Of[T any](items []T, p Params) *Response[T] {
	page, total := Page(items, p)
	return &Response[T]{
		Data:    page,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+p.Limit < total,
	}
}

// Settle records the store state the page was read under and returns the
// status to answer with: 502 when the last refresh failed, 200 otherwise.
func (r *Response[T]) Settle(loading bool, storeErr string) int {
	r.Loading = loading
	if storeErr == "" {
		return http.StatusOK
	}
	r.Stale = true
	r.Error = storeErr
	return http.StatusBadGateway
}

// Page returns items[Offset:Offset+Limit], clipped, and len(items). A page
// past the end is empty but never nil.
func Page[T any](items []T, p Params) ([]T, int) {
	total := len(items)
	if p.Offset >= total {
		return []T{}, total
	}
	return items[p.Offset:min(p.Offset+p.Limit, total)], total
}
