package journal

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/note"
)

// MemoryStore keeps everything in process memory. Used by tests and as a
// scratch backend.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[int64]map[int64]edit.Operation
	notes     map[int64]note.Note
	aliases   map[int64]int64
	discarded map[int64]int64
	lastNote  int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[int64]map[int64]edit.Operation),
		notes:     make(map[int64]note.Note),
		aliases:   make(map[int64]int64),
		discarded: make(map[int64]int64),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Append(ctx context.Context, op edit.Operation) (edit.Operation, error) {
	op, err := prepare(op)
	if err != nil {
		return op, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.discarded[op.SessionID]; ok {
		return op, ErrSessionDiscarded
	}
	if target, ok := m.aliases[op.SessionID]; ok {
		if _, ok := m.discarded[target]; ok {
			return op, ErrSessionDiscarded
		}
		op.SessionID = target
	}

	session := m.sessions[op.SessionID]
	if op.SequenceNum == 0 {
		op.SequenceNum = maxSequence(session) + 1
	}
	if _, exists := session[op.SequenceNum]; exists {
		return op, conflictSequence(op)
	}
	if session == nil {
		session = make(map[int64]edit.Operation)
		m.sessions[op.SessionID] = session
	}
	session[op.SequenceNum] = op
	return op, nil
}

func (m *MemoryStore) List(ctx context.Context, sessionID int64) ([]edit.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedOps(m.sessions[sessionID]), nil
}

func (m *MemoryStore) Sessions(ctx context.Context) ([]edit.SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := []edit.SessionInfo{}
	for id, session := range m.sessions {
		if len(session) == 0 {
			continue
		}
		infos = append(infos, summarize(id, sortedOps(session)))
	}
	sortSessions(infos)
	return infos, nil
}

func (m *MemoryStore) ReassignIdentity(ctx context.Context, oldID, newID int64) (int, error) {
	if err := validateReassign(oldID, newID); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.aliases[oldID]; ok && existing != newID {
		return 0, conflictAlias(oldID, existing, newID)
	}
	if _, ok := m.discarded[oldID]; ok {
		return 0, conflictDiscarded(oldID)
	}

	from := m.sessions[oldID]
	to := m.sessions[newID]
	for seq := range from {
		if _, exists := to[seq]; exists {
			return 0, errors.NewConflict(fmt.Sprintf("session %d already has operations with the same sequence numbers", newID))
		}
	}
	if to == nil && len(from) > 0 {
		to = make(map[int64]edit.Operation, len(from))
		m.sessions[newID] = to
	}
	for seq, op := range from {
		op.SessionID = newID
		to[seq] = op
	}
	delete(m.sessions, oldID)

	for old, target := range m.aliases {
		if target == oldID {
			m.aliases[old] = newID
		}
	}
	m.aliases[oldID] = newID
	return len(from), nil
}

func (m *MemoryStore) Discard(ctx context.Context, sessionID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := len(m.sessions[sessionID])
	delete(m.sessions, sessionID)
	if _, ok := m.discarded[sessionID]; !ok {
		m.discarded[sessionID] = time.Now().Unix()
	}
	return removed, nil
}

func (m *MemoryStore) CreateNote(ctx context.Context, content string) (note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastNote++
	n := note.Note{ID: m.lastNote, Content: content, CreatedAt: time.Now().Unix()}
	m.notes[n.ID] = n
	return n, nil
}

func (m *MemoryStore) GetNote(ctx context.Context, id int64) (note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notes[id]
	if !ok {
		return note.Note{}, errors.NewNotFound(strconv.FormatInt(id, 10))
	}
	n.OperationCount = len(m.sessions[id])
	return n, nil
}

func (m *MemoryStore) ListNotes(ctx context.Context, limit, offset int) ([]note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	notes := make([]note.Note, 0, len(m.notes))
	for _, n := range m.notes {
		n.OperationCount = len(m.sessions[n.ID])
		notes = append(notes, n)
	}
	sortNotes(notes)
	return page(notes, limit, offset), nil
}

func (m *MemoryStore) CountNotes(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notes), nil
}

func (m *MemoryStore) ImportNote(ctx context.Context, n note.Note, ops []edit.Operation) error {
	if n.ID <= 0 {
		return errors.NewInvalidRequest("note id must be positive")
	}

	prepared := make([]edit.Operation, 0, len(ops))
	seen := make(map[int64]bool, len(ops))
	for i, op := range ops {
		op, err := prepareImported(op, n.ID, i)
		if err != nil {
			return err
		}
		if seen[op.SequenceNum] {
			return conflictSequence(op)
		}
		seen[op.SequenceNum] = true
		prepared = append(prepared, op)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.notes[n.ID]; exists {
		return errors.NewConflict(fmt.Sprintf("note %d already exists", n.ID))
	}
	session := m.sessions[n.ID]
	for _, op := range prepared {
		if _, exists := session[op.SequenceNum]; exists {
			return conflictSequence(op)
		}
	}

	n.OperationCount = 0
	m.notes[n.ID] = n
	m.lastNote = max(m.lastNote, n.ID)
	if len(prepared) > 0 && session == nil {
		session = make(map[int64]edit.Operation, len(prepared))
		m.sessions[n.ID] = session
	}
	for _, op := range prepared {
		session[op.SequenceNum] = op
	}
	return nil
}

func maxSequence(session map[int64]edit.Operation) int64 {
	var highest int64
	for seq := range session {
		highest = max(highest, seq)
	}
	return highest
}

func sortedOps(session map[int64]edit.Operation) []edit.Operation {
	ops := make([]edit.Operation, 0, len(session))
	for _, op := range session {
		ops = append(ops, op)
	}
	slices.SortFunc(ops, func(a, b edit.Operation) int {
		return cmp.Compare(a.SequenceNum, b.SequenceNum)
	})
	return ops
}

// summarize builds the SessionInfo for ops ordered by sequence.
func summarize(sessionID int64, ops []edit.Operation) edit.SessionInfo {
	info := edit.SessionInfo{SessionID: sessionID, OperationCount: len(ops)}
	for i, op := range ops {
		if i == 0 || op.TimestampMs < info.FirstMs {
			info.FirstMs = op.TimestampMs
		}
		if i == 0 || op.TimestampMs > info.LastMs {
			info.LastMs = op.TimestampMs
		}
	}
	return info
}

func sortSessions(infos []edit.SessionInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].LastMs != infos[j].LastMs {
			return infos[i].LastMs > infos[j].LastMs
		}
		return infos[i].SessionID > infos[j].SessionID
	})
}

func sortNotes(notes []note.Note) {
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].CreatedAt != notes[j].CreatedAt {
			return notes[i].CreatedAt > notes[j].CreatedAt
		}
		return notes[i].ID > notes[j].ID
	})
}

func page(notes []note.Note, limit, offset int) []note.Note {
	if limit <= 0 {
		return notes
	}
	if offset >= len(notes) {
		return []note.Note{}
	}
	return notes[offset:min(offset+limit, len(notes))]
}
