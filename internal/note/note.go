// Package note holds the submitted-note types shared by the stores and the
// user-facing operations.
package note

// Note is a submitted thought. Its ID doubles as the session id of the
// journal recorded while it was typed.
type Note struct {
	// ID is the store-assigned identifier (> 0)
	ID int64 `json:"id"`

	// Content is the submitted text
	Content string `json:"content"`

	// CreatedAt is the Unix timestamp when the note was submitted
	CreatedAt int64 `json:"created_at"`

	// OperationCount is the number of journaled edit operations for this note.
	// Zero means the note has no playback history.
	OperationCount int `json:"operation_count"`
}

// Summary is a note's listing view without the full text.
type Summary struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Chars          int    `json:"chars"`
	CreatedAt      int64  `json:"created_at"`
	OperationCount int    `json:"operation_count"`
	HasHistory     bool   `json:"has_history"`
}

// HasHistory reports whether the note was recorded.
func (n *Note) HasHistory() bool {
	return n.OperationCount > 0
}

// ToSummary converts a Note to a Summary by stripping the text content.
func (n *Note) ToSummary() Summary {
	return Summary{
		ID:             n.ID,
		Title:          Title(n.Content),
		Chars:          CountChars(n.Content),
		CreatedAt:      n.CreatedAt,
		OperationCount: n.OperationCount,
		HasHistory:     n.HasHistory(),
	}
}
