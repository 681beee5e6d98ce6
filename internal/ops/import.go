package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/note"
	"github.com/hpungsan/thoughts/internal/playback"
)

// ImportMode controls what happens when an archived note id is already taken.
type ImportMode string

const (
	ImportModeError    ImportMode = "error"    // import nothing if any record fails
	ImportModeSkip     ImportMode = "skip"     // leave the existing note, skip the record
	ImportModeRenumber ImportMode = "renumber" // store the record under a fresh id
)

// maxArchiveLine bounds a single JSONL record; a note carries its whole journal.
const maxArchiveLine = 64 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a record that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      int64  `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type archiveRecord struct {
	line int
	note.ExportRecord
}

// Import reads a JSONL archive written by Export. Every journal must replay
// to its note's content; records whose journal does not are reported as
// CORRUPT_JOURNAL and never stored.
func Import(ctx context.Context, store journal.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeSkip, ImportModeRenumber:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip, renumber")
	}
	if err := ValidateArchivePath(input.Path, pathRead, cfg); err != nil {
		return nil, err
	}

	file, err := openArchive(input.Path)
	if err != nil {
		if errors.As(err).Code != errors.ErrInternal {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, problems := readArchive(file)
	unreadable := len(problems)
	for _, r := range records {
		if p, ok := checkRecord(r); !ok {
			problems = append(problems, p)
		}
	}

	existing, err := store.ListNotes(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]bool, len(existing))
	var nextID int64
	for _, n := range existing {
		taken[n.ID] = true
		nextID = max(nextID, n.ID)
	}

	if input.Mode == ImportModeError {
		inArchive := make(map[int64]bool, len(records))
		for _, r := range records {
			switch {
			case taken[r.ID]:
				problems = append(problems, ImportError{
					Line:    r.line,
					ID:      r.ID,
					Code:    "ID_COLLISION",
					Message: fmt.Sprintf("note %d already exists", r.ID),
				})
			case inArchive[r.ID]:
				problems = append(problems, ImportError{
					Line:    r.line,
					ID:      r.ID,
					Code:    "ID_COLLISION",
					Message: fmt.Sprintf("note %d appears more than once in the archive", r.ID),
				})
			}
			inArchive[r.ID] = true
		}
		if len(problems) > 0 {
			return &ImportOutput{Errors: problems}, nil
		}
	}

	out := &ImportOutput{Skipped: unreadable, Errors: problems}
	bad := make(map[int]bool, len(problems))
	for _, p := range problems {
		bad[p.Line] = true
	}
	for _, r := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		if bad[r.line] {
			out.Skipped++
			continue
		}

		n := *r.ToNote()
		ops := r.Operations
		if taken[n.ID] {
			if input.Mode == ImportModeSkip {
				out.Skipped++
				continue
			}
			n.ID = nextID + 1
			ops = freshIDs(ops)
		}

		if err := store.ImportNote(ctx, n, ops); err != nil {
			e := errors.As(err)
			out.Errors = append(out.Errors, ImportError{Line: r.line, ID: r.ID, Code: string(e.Code), Message: e.Message})
			out.Skipped++
			continue
		}
		taken[n.ID] = true
		nextID = max(nextID, n.ID)
		out.Imported++
	}
	return out, nil
}

// readArchive parses every record line, skipping the header.
func readArchive(r io.Reader) ([]archiveRecord, []ImportError) {
	var records []archiveRecord
	var problems []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxArchiveLine)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec note.ExportRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			problems = append(problems, ImportError{
				Line:    line,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if rec.ThoughtsExport {
			continue
		}
		records = append(records, archiveRecord{line: line, ExportRecord: rec})
	}
	if err := scanner.Err(); err != nil {
		problems = append(problems, ImportError{
			Line:    line + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return records, problems
}

// checkRecord validates one record before anything is written.
func checkRecord(r archiveRecord) (ImportError, bool) {
	if r.ID <= 0 {
		return ImportError{Line: r.line, Code: "INVALID_RECORD", Message: "missing or non-positive id"}, false
	}
	if len(r.Operations) == 0 {
		return ImportError{}, true
	}

	ops := make([]edit.Operation, len(r.Operations))
	for i, op := range r.Operations {
		op.SessionID = r.ID
		if op.SequenceNum == 0 {
			op.SequenceNum = int64(i + 1)
		}
		// Stored operations get their lengths from Content, so replay that.
		op.Normalize()
		ops[i] = op
	}
	final, err := playback.FinalContent(ops)
	if err != nil {
		e := errors.As(err)
		return ImportError{Line: r.line, ID: r.ID, Code: string(e.Code), Message: e.Message}, false
	}
	if final != r.Content {
		return ImportError{
			Line:    r.line,
			ID:      r.ID,
			Code:    string(errors.ErrCorruptJournal),
			Message: "journal does not replay to the note content",
		}, false
	}
	return ImportError{}, true
}

// freshIDs copies ops without their ids so the log mints new ones.
func freshIDs(ops []edit.Operation) []edit.Operation {
	out := make([]edit.Operation, len(ops))
	for i, op := range ops {
		op.ID = ""
		out[i] = op
	}
	return out
}
