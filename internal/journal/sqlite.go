package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/thoughts/internal/db"
	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/note"
)

// SQLiteStore is the default backend on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a database opened by db.Init.
func NewSQLiteStore(database *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a write transaction, committing only if fn succeeds.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, op edit.Operation) (edit.Operation, error) {
	op, err := prepare(op)
	if err != nil {
		return op, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		discarded, err := db.IsDiscarded(ctx, tx, op.SessionID)
		if err != nil {
			return err
		}
		if discarded {
			return ErrSessionDiscarded
		}

		if target, ok, err := db.ResolveAlias(ctx, tx, op.SessionID); err != nil {
			return err
		} else if ok {
			if discarded, err = db.IsDiscarded(ctx, tx, target); err != nil {
				return err
			}
			if discarded {
				return ErrSessionDiscarded
			}
			op.SessionID = target
		}

		if op.SequenceNum == 0 {
			if op.SequenceNum, err = db.NextSequence(ctx, tx, op.SessionID); err != nil {
				return err
			}
		}

		if err := db.InsertOperation(ctx, tx, &op); err != nil {
			if err == db.ErrUniqueConstraint {
				return conflictSequence(op)
			}
			return err
		}
		return nil
	})
	return op, err
}

func (s *SQLiteStore) List(ctx context.Context, sessionID int64) ([]edit.Operation, error) {
	return db.ListOperations(ctx, s.db, sessionID)
}

func (s *SQLiteStore) Sessions(ctx context.Context) ([]edit.SessionInfo, error) {
	return db.ListSessions(ctx, s.db)
}

func (s *SQLiteStore) ReassignIdentity(ctx context.Context, oldID, newID int64) (int, error) {
	if err := validateReassign(oldID, newID); err != nil {
		return 0, err
	}

	var moved int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, ok, err := db.ResolveAlias(ctx, tx, oldID)
		if err != nil {
			return err
		}
		if ok && existing != newID {
			return conflictAlias(oldID, existing, newID)
		}

		discarded, err := db.IsDiscarded(ctx, tx, oldID)
		if err != nil {
			return err
		}
		if discarded {
			return conflictDiscarded(oldID)
		}

		moved, err = db.RelabelOperations(ctx, tx, oldID, newID)
		if err != nil {
			if err == db.ErrUniqueConstraint {
				return errors.NewConflict(fmt.Sprintf("session %d already has operations with the same sequence numbers", newID))
			}
			return err
		}
		return db.InsertAlias(ctx, tx, oldID, newID)
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (s *SQLiteStore) Discard(ctx context.Context, sessionID int64) (int, error) {
	var removed int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if removed, err = db.DeleteOperations(ctx, tx, sessionID); err != nil {
			return err
		}
		return db.InsertTombstone(ctx, tx, sessionID, time.Now().Unix())
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *SQLiteStore) CreateNote(ctx context.Context, content string) (note.Note, error) {
	now := time.Now().Unix()
	id, err := db.InsertNote(ctx, s.db, content, now)
	if err != nil {
		return note.Note{}, err
	}
	return note.Note{ID: id, Content: content, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetNote(ctx context.Context, id int64) (note.Note, error) {
	n, err := db.GetNote(ctx, s.db, id)
	if err != nil {
		return note.Note{}, err
	}
	return *n, nil
}

func (s *SQLiteStore) ListNotes(ctx context.Context, limit, offset int) ([]note.Note, error) {
	return db.ListNotes(ctx, s.db, limit, offset)
}

func (s *SQLiteStore) CountNotes(ctx context.Context) (int, error) {
	return db.CountNotes(ctx, s.db)
}

func (s *SQLiteStore) ImportNote(ctx context.Context, n note.Note, ops []edit.Operation) error {
	if n.ID <= 0 {
		return errors.NewInvalidRequest("note id must be positive")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.InsertNoteWithID(ctx, tx, &n); err != nil {
			if err == db.ErrUniqueConstraint {
				return errors.NewConflict(fmt.Sprintf("note %d already exists", n.ID))
			}
			return err
		}
		for i, op := range ops {
			op, err := prepareImported(op, n.ID, i)
			if err != nil {
				return err
			}
			if err := db.InsertOperation(ctx, tx, &op); err != nil {
				if err == db.ErrUniqueConstraint {
					return conflictSequence(op)
				}
				return err
			}
		}
		return nil
	})
}
