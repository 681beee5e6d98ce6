// Package journal persists notes and the keystroke journal recorded while they
// were typed. Every backend implements the same Store contract.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/db"
	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/note"
)

// BoltFileName is the bbolt database inside the base directory.
const BoltFileName = "thoughts.bolt"

// ErrSessionDiscarded is returned by Append for a session that was discarded.
// The operation is dropped, not stored.
var ErrSessionDiscarded = &errors.ThoughtsError{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "session was discarded",
}

// Log is the append-only operation log.
type Log interface {
	// Append stores op. A zero SequenceNum is assigned max+1 for the session;
	// a caller-assigned one is kept and must be unique within the session.
	// Appends for a reassigned session land under its new id.
	Append(ctx context.Context, op edit.Operation) (edit.Operation, error)

	// List returns the session's operations ordered by SequenceNum.
	List(ctx context.Context, sessionID int64) ([]edit.Operation, error)

	// ReassignIdentity relabels every operation of oldID to newID in one
	// transaction and returns how many moved.
	ReassignIdentity(ctx context.Context, oldID, newID int64) (int, error)

	// Discard deletes every operation of the session and returns how many.
	Discard(ctx context.Context, sessionID int64) (int, error)

	// Sessions summarizes every session that has operations.
	Sessions(ctx context.Context) ([]edit.SessionInfo, error)
}

// NoteStore persists submitted notes.
type NoteStore interface {
	CreateNote(ctx context.Context, content string) (note.Note, error)
	GetNote(ctx context.Context, id int64) (note.Note, error)
	// ListNotes returns notes newest first. limit <= 0 returns all.
	ListNotes(ctx context.Context, limit, offset int) ([]note.Note, error)
	CountNotes(ctx context.Context) (int, error)
	// ImportNote stores a note under its own ID together with its journal.
	ImportNote(ctx context.Context, n note.Note, ops []edit.Operation) error
}

// Store is a complete backend.
type Store interface {
	Log
	NoteStore
	Close() error
}

// Open opens the backend selected by cfg.StoreBackend under cfg.BaseDir.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "", config.BackendSQLite:
		database, err := db.Init(cfg.BaseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(database, cfg)
		return NewSQLiteStore(database), nil
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.ExportsDir(), 0700); err != nil {
			return nil, fmt.Errorf("failed to create exports directory: %w", err)
		}
		return OpenBolt(filepath.Join(cfg.BaseDir, BoltFileName))
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// prepare validates op and fills the fields the log owns.
func prepare(op edit.Operation) (edit.Operation, error) {
	if !op.Type.Valid() {
		return op, errors.NewInvalidRequest(fmt.Sprintf("operation_type must be one of: insert, delete, replace (got %q)", op.Type))
	}
	if op.Position < 0 {
		return op, errors.NewInvalidRequest("position must not be negative")
	}
	if op.SequenceNum < 0 {
		return op, errors.NewInvalidRequest("sequence_num must not be negative")
	}
	if op.ReplacedLength < 0 {
		return op, errors.NewInvalidRequest("replaced_length must not be negative")
	}
	op.Normalize()
	if op.ID == "" {
		op.ID = ulid.Make().String()
	}
	if op.TimestampMs == 0 {
		op.TimestampMs = time.Now().UnixMilli()
	}
	return op, nil
}

// prepareImported binds an imported operation to its note. Missing sequence
// numbers follow the slice order.
func prepareImported(op edit.Operation, noteID int64, i int) (edit.Operation, error) {
	op.SessionID = noteID
	if op.SequenceNum == 0 {
		op.SequenceNum = int64(i + 1)
	}
	return prepare(op)
}

func validateReassign(oldID, newID int64) error {
	if oldID == newID {
		return errors.NewInvalidRequest("old and new session ids must differ")
	}
	if newID == 0 {
		return errors.NewInvalidRequest("new session id must be set")
	}
	return nil
}

func conflictSequence(op edit.Operation) error {
	return errors.NewConflict(fmt.Sprintf("session %d already has sequence %d", op.SessionID, op.SequenceNum))
}

func conflictAlias(oldID, existing, newID int64) error {
	return errors.NewConflict(fmt.Sprintf("session %d was already reassigned to %d, cannot reassign to %d", oldID, existing, newID))
}

func conflictDiscarded(sessionID int64) error {
	return errors.NewConflict(fmt.Sprintf("session %d was discarded", sessionID))
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*BoltStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
