package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/note"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.ThoughtsError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

const noteColumns = `
	n.id, n.content, n.created_at,
	(SELECT COUNT(*) FROM edit_operations o WHERE o.session_id = n.id)
`

const operationColumns = `
	id, session_id, sequence_num, operation_type, position,
	content, content_length, replaced_length, timestamp_ms
`

// InsertNote stores a new note and returns its assigned ID.
func InsertNote(ctx context.Context, db DBTX, content string, createdAt int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO notes (content, created_at) VALUES (?, ?)`,
		content, createdAt,
	)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return id, nil
}

// InsertNoteWithID stores a note under a caller-chosen ID (import).
func InsertNoteWithID(ctx context.Context, db DBTX, n *note.Note) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO notes (id, content, created_at) VALUES (?, ?, ?)`,
		n.ID, n.Content, n.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetNote retrieves a note by ID along with its operation count.
func GetNote(ctx context.Context, db DBTX, id int64) (*note.Note, error) {
	row := db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`, id)

	var n note.Note
	err := row.Scan(&n.ID, &n.Content, &n.CreatedAt, &n.OperationCount)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(formatID(id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &n, nil
}

// ListNotes returns notes newest first. limit <= 0 returns all.
func ListNotes(ctx context.Context, db DBTX, limit, offset int) ([]note.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes n ORDER BY n.created_at DESC, n.id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	notes := []note.Note{}
	for rows.Next() {
		var n note.Note
		if err := rows.Scan(&n.ID, &n.Content, &n.CreatedAt, &n.OperationCount); err != nil {
			return nil, errors.NewInternal(err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return notes, nil
}

// CountNotes returns the total number of notes.
func CountNotes(ctx context.Context, db DBTX) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// NextSequence returns max(sequence_num)+1 for the session, or 1 if empty.
func NextSequence(ctx context.Context, db DBTX, sessionID int64) (int64, error) {
	var next int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_num), 0) + 1 FROM edit_operations WHERE session_id = ?`,
		sessionID,
	).Scan(&next)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return next, nil
}

// InsertOperation stores one edit operation.
// Returns ErrUniqueConstraint if the (session, sequence) pair or ID exists.
func InsertOperation(ctx context.Context, db DBTX, op *edit.Operation) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO edit_operations (`+operationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.ID, op.SessionID, op.SequenceNum, string(op.Type), op.Position,
		op.Content, op.ContentLength, op.ReplacedLength, op.TimestampMs,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// ListOperations returns the session's operations ordered by sequence number.
func ListOperations(ctx context.Context, db DBTX, sessionID int64) ([]edit.Operation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+operationColumns+`
		FROM edit_operations
		WHERE session_id = ?
		ORDER BY sequence_num ASC
	`, sessionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	ops := []edit.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ops, nil
}

// ListSessions summarizes every session that has operations, most recent first.
func ListSessions(ctx context.Context, db DBTX) ([]edit.SessionInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MIN(timestamp_ms), MAX(timestamp_ms)
		FROM edit_operations
		GROUP BY session_id
		ORDER BY MAX(timestamp_ms) DESC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	sessions := []edit.SessionInfo{}
	for rows.Next() {
		var s edit.SessionInfo
		if err := rows.Scan(&s.SessionID, &s.OperationCount, &s.FirstMs, &s.LastMs); err != nil {
			return nil, errors.NewInternal(err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return sessions, nil
}

// RelabelOperations moves every operation of oldID to newID.
func RelabelOperations(ctx context.Context, db DBTX, oldID, newID int64) (int, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE edit_operations SET session_id = ? WHERE session_id = ?`,
		newID, oldID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ErrUniqueConstraint
		}
		return 0, errors.NewInternal(err)
	}
	return rowsAffected(result)
}

// DeleteOperations removes every operation of the session.
func DeleteOperations(ctx context.Context, db DBTX, sessionID int64) (int, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM edit_operations WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return rowsAffected(result)
}

// ResolveAlias returns the id oldID was reassigned to, if any.
func ResolveAlias(ctx context.Context, db DBTX, oldID int64) (int64, bool, error) {
	var newID int64
	err := db.QueryRowContext(ctx, `SELECT new_id FROM session_aliases WHERE old_id = ?`, oldID).Scan(&newID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.NewInternal(err)
	}
	return newID, true, nil
}

// InsertAlias records oldID -> newID and repoints aliases that targeted oldID.
func InsertAlias(ctx context.Context, db DBTX, oldID, newID int64) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE session_aliases SET new_id = ? WHERE new_id = ?`, newID, oldID,
	); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_aliases (old_id, new_id) VALUES (?, ?)`, oldID, newID,
	); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// IsDiscarded reports whether the session has a discard tombstone.
func IsDiscarded(ctx context.Context, db DBTX, sessionID int64) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM discarded_sessions WHERE session_id = ? LIMIT 1`, sessionID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// InsertTombstone marks the session as discarded. Repeated calls are no-ops.
func InsertTombstone(ctx context.Context, db DBTX, sessionID, discardedAt int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO discarded_sessions (session_id, discarded_at) VALUES (?, ?)`,
		sessionID, discardedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func rowsAffected(result sql.Result) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// scanOperation scans the current row into an Operation.
func scanOperation(rows *sql.Rows) (*edit.Operation, error) {
	var (
		op  edit.Operation
		typ string
	)
	err := rows.Scan(
		&op.ID, &op.SessionID, &op.SequenceNum, &typ, &op.Position,
		&op.Content, &op.ContentLength, &op.ReplacedLength, &op.TimestampMs,
	)
	if err != nil {
		return nil, err
	}
	op.Type = edit.OpType(typ)
	return &op, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
