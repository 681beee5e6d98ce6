package ops

import (
	"context"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/journal"
)

// ListJournalInput contains parameters for the ListJournal operation.
type ListJournalInput struct {
	SessionID int64 // note id, or a negative provisional id
}

// ListJournalOutput contains the result of the ListJournal operation.
type ListJournalOutput struct {
	SessionID  int64            `json:"session_id"`
	Operations []edit.Operation `json:"operations"`
	Count      int              `json:"count"`
}

// ListJournal returns the session's operations in replay order.
func ListJournal(ctx context.Context, log journal.Log, input ListJournalInput) (*ListJournalOutput, error) {
	if err := requireSessionID(input.SessionID); err != nil {
		return nil, err
	}
	ops, err := log.List(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	return &ListJournalOutput{
		SessionID:  input.SessionID,
		Operations: ops,
		Count:      len(ops),
	}, nil
}

// ListSessionsInput contains parameters for the ListSessions operation.
type ListSessionsInput struct {
	ProvisionalOnly bool // only sessions never committed to a note
}

// ListSessionsOutput contains the result of the ListSessions operation.
type ListSessionsOutput struct {
	Sessions []edit.SessionInfo `json:"sessions"`
}

// ListSessions summarizes recorded sessions, most recent first. Provisional
// sessions left behind by a crash show up here and can be recovered or
// discarded.
func ListSessions(ctx context.Context, log journal.Log, input ListSessionsInput) (*ListSessionsOutput, error) {
	sessions, err := log.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	if input.ProvisionalOnly {
		kept := sessions[:0]
		for _, s := range sessions {
			if s.Provisional() {
				kept = append(kept, s)
			}
		}
		sessions = kept
	}
	return &ListSessionsOutput{Sessions: sessions}, nil
}

// DiscardInput contains parameters for the Discard operation.
type DiscardInput struct {
	SessionID int64
}

// DiscardOutput contains the result of the Discard operation.
type DiscardOutput struct {
	SessionID int64 `json:"session_id"`
	Removed   int   `json:"removed"`
}

// Discard irreversibly deletes a session's journal. A note recorded under the
// session keeps its text but loses its playback history.
func Discard(ctx context.Context, log journal.Log, input DiscardInput) (*DiscardOutput, error) {
	if err := requireSessionID(input.SessionID); err != nil {
		return nil, err
	}
	removed, err := log.Discard(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	return &DiscardOutput{SessionID: input.SessionID, Removed: removed}, nil
}
