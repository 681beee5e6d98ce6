// Package session drives a single recording session: it turns text-box
// changes into journaled operations and settles the journal on submit or
// discard.
package session

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/note"
)

// State is the recorder's lifecycle state.
type State int

const (
	Idle State = iota
	Recording
	ConfirmingDiscard
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case ConfirmingDiscard:
		return "confirming discard"
	}
	return "unknown"
}

// Appender accepts operations for background persistence.
// *journal.Writer implements it.
type Appender interface {
	Enqueue(op edit.Operation) bool
	Flush(ctx context.Context) error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// Recorder is owned by one event loop and is not safe for concurrent use.
type Recorder struct {
	log    journal.Log
	notes  journal.NoteStore
	writer Appender
	now    func() time.Time
	logger *slog.Logger

	state     State
	sessionID int64
	seq       int64
	text      string

	// pending is the note created by a Commit whose reassign failed. A retry
	// reuses it instead of creating a second note.
	pending *note.Note
}

// NewRecorder creates an idle recorder.
func NewRecorder(log journal.Log, notes journal.NoteStore, writer Appender, opts ...Option) *Recorder {
	r := &Recorder{
		log:    log,
		notes:  notes,
		writer: writer,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) State() State { return r.state }

// SessionID is the provisional id of the current session, 0 when idle.
func (r *Recorder) SessionID() int64 { return r.sessionID }

// Text is the last observed text-box content.
func (r *Recorder) Text() string { return r.text }

// OperationCount is the number of operations emitted in this session.
func (r *Recorder) OperationCount() int64 { return r.seq }

// Start begins a session with a fresh provisional id. Text already in the
// box is journaled as an initial insert so replay from "" reproduces it.
func (r *Recorder) Start(current string) error {
	if r.state != Idle {
		return errors.NewSessionState("start recording", r.state.String())
	}
	r.state = Recording
	r.sessionID = newProvisionalID(r.now())
	r.seq = 0
	r.pending = nil
	r.text = ""
	r.logger.Debug("recording started", "session_id", r.sessionID)
	r.Observe(current, edit.RuneLen(current))
	return nil
}

// Observe records the text box's new content, with invalid UTF-8 replaced.
// Outside a session it only tracks the text. It returns the emitted operation, if any.
func (r *Recorder) Observe(next string, cursor int) (edit.Operation, bool) {
	next = edit.ValidText(next)
	if r.state == Idle {
		r.text = next
		return edit.Operation{}, false
	}

	op, ok := edit.Diff(r.text, next, cursor)
	r.text = next
	if !ok {
		return edit.Operation{}, false
	}

	r.seq++
	op.SessionID = r.sessionID
	op.SequenceNum = r.seq
	op.TimestampMs = r.now().UnixMilli()
	r.writer.Enqueue(op)
	return op, true
}

// RequestClose is called when the user closes the box or toggles record mode
// off. A session with operations moves to ConfirmingDiscard; an empty one
// ends without persisting anything.
func (r *Recorder) RequestClose() State {
	if r.state == Recording {
		if r.seq > 0 {
			r.state = ConfirmingDiscard
		} else {
			r.reset()
		}
	}
	return r.state
}

// Stop is RequestClose for the record-mode toggle.
func (r *Recorder) Stop() State {
	return r.RequestClose()
}

// CancelDiscard returns to recording from the discard prompt.
func (r *Recorder) CancelDiscard() error {
	if r.state != ConfirmingDiscard {
		return errors.NewSessionState("cancel discard", r.state.String())
	}
	r.state = Recording
	return nil
}

// ConfirmDiscard deletes the session's journal. On failure the state is kept
// so the caller can retry.
func (r *Recorder) ConfirmDiscard(ctx context.Context) error {
	if r.state != ConfirmingDiscard {
		return errors.NewSessionState("discard", r.state.String())
	}
	if err := r.writer.Flush(ctx); err != nil {
		return err
	}
	removed, err := r.log.Discard(ctx, r.sessionID)
	if err != nil {
		r.logger.Warn("discard failed", "session_id", r.sessionID, "error", err)
		return err
	}
	r.logger.Debug("recording discarded", "session_id", r.sessionID, "removed", removed)
	r.reset()
	return nil
}

// KeepHistory answers the discard prompt by submitting the note.
func (r *Recorder) KeepHistory(ctx context.Context, content string) (note.Note, error) {
	if r.state != ConfirmingDiscard {
		return note.Note{}, errors.NewSessionState("keep history", r.state.String())
	}
	return r.Commit(ctx, content)
}

// Commit submits content as a note. During a session any change since the
// last Observe is journaled first, then the journal is flushed and relabeled
// from the provisional id to the note id. If the relabel fails
// the session keeps recording under the provisional id and a later Commit
// reuses the note already created.
func (r *Recorder) Commit(ctx context.Context, content string) (note.Note, error) {
	content = edit.ValidText(content)
	if r.state == Idle {
		return r.notes.CreateNote(ctx, content)
	}

	r.Observe(content, edit.RuneLen(content))
	if err := r.writer.Flush(ctx); err != nil {
		return note.Note{}, err
	}

	if r.pending == nil {
		n, err := r.notes.CreateNote(ctx, content)
		if err != nil {
			return note.Note{}, err
		}
		r.pending = &n
	}
	n := *r.pending

	if r.seq > 0 {
		moved, err := r.log.ReassignIdentity(ctx, r.sessionID, n.ID)
		if err != nil {
			r.state = Recording
			r.logger.Warn("reassign failed", "session_id", r.sessionID, "note_id", n.ID, "error", err)
			return note.Note{}, err
		}
		n.OperationCount = moved
	}

	r.logger.Debug("recording committed", "session_id", r.sessionID, "note_id", n.ID, "operations", n.OperationCount)
	r.reset()
	r.text = ""
	return n, nil
}

func (r *Recorder) reset() {
	r.state = Idle
	r.sessionID = 0
	r.seq = 0
	r.pending = nil
}

var lastProvisional atomic.Int64

// newProvisionalID returns a negative id unique within the process and, by
// deriving it from the clock, across runs.
func newProvisionalID(now time.Time) int64 {
	id := -now.UnixNano()
	for {
		last := lastProvisional.Load()
		candidate := id
		if candidate >= last {
			candidate = last - 1
		}
		if lastProvisional.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}
