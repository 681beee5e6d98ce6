// Package edit turns consecutive text states into edit operations and applies
// them back. Positions and lengths count runes, not bytes.
package edit

// OpType is the closed set of edit operation kinds.
type OpType string

const (
	OpInsert  OpType = "insert"
	OpDelete  OpType = "delete"
	OpReplace OpType = "replace"
)

// Valid reports whether t is one of the three known operation kinds.
func (t OpType) Valid() bool {
	switch t {
	case OpInsert, OpDelete, OpReplace:
		return true
	}
	return false
}

// Operation is a single journaled edit.
type Operation struct {
	// ID is a ULID assigned by the log on insertion.
	ID string `json:"id"`

	// SessionID is negative while provisional, the note ID once committed, 0 if unset.
	SessionID int64 `json:"session_id"`

	// SequenceNum starts at 1 within a session and defines replay order.
	SequenceNum int64 `json:"sequence_num"`

	Type OpType `json:"operation_type"`

	// Position is the rune offset into the pre-operation text.
	Position int `json:"position"`

	// Content is the inserted text (insert, replace) or the removed text (delete).
	Content string `json:"content"`

	// ContentLength is the rune length of Content.
	ContentLength int `json:"content_length"`

	// ReplacedLength is the rune length of the span removed from the
	// pre-operation text: ContentLength for delete, 0 for insert.
	ReplacedLength int `json:"replaced_length"`

	// TimestampMs is the capture time in milliseconds since epoch.
	TimestampMs int64 `json:"timestamp_ms"`
}

// RemovedLength returns how many runes the operation removes at Position.
func (op Operation) RemovedLength() int {
	switch op.Type {
	case OpDelete:
		return op.ContentLength
	case OpReplace:
		return op.ReplacedLength
	}
	return 0
}

// Normalize fills the redundant length fields from Content.
func (op *Operation) Normalize() {
	op.ContentLength = RuneLen(op.Content)
	switch op.Type {
	case OpInsert:
		op.ReplacedLength = 0
	case OpDelete:
		op.ReplacedLength = op.ContentLength
	}
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// SessionInfo summarizes the journal of one session.
type SessionInfo struct {
	SessionID      int64 `json:"session_id"`
	OperationCount int   `json:"operation_count"`
	FirstMs        int64 `json:"first_ms"`
	LastMs         int64 `json:"last_ms"`
}

// Provisional reports whether the session was never committed to a note.
func (s SessionInfo) Provisional() bool {
	return s.SessionID <= 0
}
