// Package ops implements the user-facing operations shared by the CLI, the MCP
// server and the web UI.
package ops

import (
	"fmt"

	"github.com/hpungsan/thoughts/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// normalizePagination applies defaults and bounds to limit and offset.
func normalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// paginate returns the page of items and its metadata.
func paginate[T any](items []T, limit, offset int) ([]T, Pagination) {
	limit, offset = normalizePagination(limit, offset)
	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)
	return items[start:end], Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

// requireNoteID rejects ids that cannot name a note.
func requireNoteID(id int64) error {
	if id <= 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("id must be a positive note id (got %d)", id))
	}
	return nil
}

// requireSessionID rejects the unset session id.
func requireSessionID(id int64) error {
	if id == 0 {
		return errors.NewInvalidRequest("session_id is required")
	}
	return nil
}
