package note

import "github.com/hpungsan/thoughts/internal/edit"

// ExportRecord is one line of a JSONL export: either the header or a note
// with its journal.
type ExportRecord struct {
	// Header detection field - true only for header line
	ThoughtsExport bool `json:"_thoughts_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	// Note fields
	ID         int64            `json:"id"`
	Content    string           `json:"content"`
	CreatedAt  int64            `json:"created_at"`
	Operations []edit.Operation `json:"operations,omitempty"`
}

// ToNote converts an ExportRecord to a Note, recomputing the operation count.
func (r *ExportRecord) ToNote() *Note {
	return &Note{
		ID:             r.ID,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
		OperationCount: len(r.Operations),
	}
}

// ToExportRecord converts a Note and its journal to an ExportRecord.
func ToExportRecord(n *Note, ops []edit.Operation) *ExportRecord {
	return &ExportRecord{
		ID:         n.ID,
		Content:    n.Content,
		CreatedAt:  n.CreatedAt,
		Operations: ops,
	}
}
