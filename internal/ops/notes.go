package ops

import (
	"context"

	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/note"
)

// ListNotesInput contains parameters for the ListNotes operation.
type ListNotesInput struct {
	Query  string // optional, case-insensitive substring filter
	Limit  int    // default: 20, max: 100
	Offset int
}

// ListNotesOutput contains the result of the ListNotes operation.
type ListNotesOutput struct {
	Items      []note.Summary `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// ListNotes returns note summaries newest first. Without a query the store
// pages; a query filters every note in memory.
func ListNotes(ctx context.Context, store journal.NoteStore, input ListNotesInput) (*ListNotesOutput, error) {
	if note.Normalize(input.Query) == "" {
		return listNotesPage(ctx, store, input.Limit, input.Offset)
	}

	notes, err := store.ListNotes(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	summaries := make([]note.Summary, 0, len(notes))
	for _, n := range notes {
		if !note.Matches(n.Content, input.Query) {
			continue
		}
		summaries = append(summaries, n.ToSummary())
	}

	items, pagination := paginate(summaries, input.Limit, input.Offset)
	return &ListNotesOutput{Items: items, Pagination: pagination}, nil
}

func listNotesPage(ctx context.Context, store journal.NoteStore, limit, offset int) (*ListNotesOutput, error) {
	limit, offset = normalizePagination(limit, offset)
	notes, err := store.ListNotes(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := store.CountNotes(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]note.Summary, len(notes))
	for i, n := range notes {
		items[i] = n.ToSummary()
	}
	return &ListNotesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(notes) < total,
			Total:   total,
		},
	}, nil
}

// FetchNoteInput contains parameters for the FetchNote operation.
type FetchNoteInput struct {
	ID int64
}

// FetchNoteOutput contains the result of the FetchNote operation.
type FetchNoteOutput struct {
	note.Note
	Title      string `json:"title"`
	HasHistory bool   `json:"has_history"`
}

// FetchNote retrieves a note by ID.
func FetchNote(ctx context.Context, store journal.NoteStore, input FetchNoteInput) (*FetchNoteOutput, error) {
	if err := requireNoteID(input.ID); err != nil {
		return nil, err
	}
	n, err := store.GetNote(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &FetchNoteOutput{
		Note:       n,
		Title:      note.Title(n.Content),
		HasHistory: n.HasHistory(),
	}, nil
}
