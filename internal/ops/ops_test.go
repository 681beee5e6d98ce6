package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/db"
	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/note"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()
	return cfg
}

func sqliteStore(t *testing.T, baseDir string) journal.Store {
	t.Helper()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	s := journal.NewSQLiteStore(database)
	t.Cleanup(func() { s.Close() })
	return s
}

// record journals the keystroke texts under a provisional session and returns
// the session id.
func record(t *testing.T, log journal.Log, session int64, texts ...string) int64 {
	t.Helper()
	ctx := context.Background()
	prev := ""
	var ts int64 = 1_700_000_000_000
	for _, next := range texts {
		op, ok := edit.Diff(prev, next, 0)
		prev = next
		if !ok {
			continue
		}
		ts += 120
		op.SessionID = session
		op.TimestampMs = ts
		_, err := log.Append(ctx, op)
		require.NoError(t, err)
	}
	return session
}

// commit records texts and saves the last one as a note.
func commit(t *testing.T, store journal.Store, session int64, texts ...string) note.Note {
	t.Helper()
	ctx := context.Background()
	record(t, store, session, texts...)
	n, err := store.CreateNote(ctx, texts[len(texts)-1])
	require.NoError(t, err)
	moved, err := store.ReassignIdentity(ctx, session, n.ID)
	require.NoError(t, err)
	n.OperationCount = moved
	return n
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := paginate(items, 2, 1)
	assert.Equal(t, []int{2, 3}, page)
	assert.Equal(t, Pagination{Limit: 2, Offset: 1, HasMore: true, Total: 5}, p)

	page, p = paginate(items, 0, 99)
	assert.Empty(t, page)
	assert.Equal(t, DefaultListLimit, p.Limit)
	assert.False(t, p.HasMore)

	_, p = paginate(items, 1000, -3)
	assert.Equal(t, MaxListLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestListNotes(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	commit(t, store, -1, "g", "groceries")
	commit(t, store, -2, "Meeting notes\nship it")
	_, err := store.CreateNote(ctx, "typed elsewhere")
	require.NoError(t, err)

	out, err := ListNotes(ctx, store, ListNotesInput{})
	require.NoError(t, err)
	require.Len(t, out.Items, 3)
	assert.Equal(t, 3, out.Pagination.Total)
	assert.Equal(t, "typed elsewhere", out.Items[0].Title)
	assert.False(t, out.Items[0].HasHistory)
	assert.Equal(t, "Meeting notes", out.Items[1].Title)
	assert.True(t, out.Items[1].HasHistory)

	out, err = ListNotes(ctx, store, ListNotesInput{Query: "  GROCER "})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "groceries", out.Items[0].Title)
	assert.Equal(t, 2, out.Items[0].OperationCount)

	out, err = ListNotes(ctx, store, ListNotesInput{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.True(t, out.Pagination.HasMore)
}

// pageRecorder records the bounds ListNotes is called with.
type pageRecorder struct {
	*journal.MemoryStore
	calls [][2]int
}

func (p *pageRecorder) ListNotes(ctx context.Context, limit, offset int) ([]note.Note, error) {
	p.calls = append(p.calls, [2]int{limit, offset})
	return p.MemoryStore.ListNotes(ctx, limit, offset)
}

func TestListNotes_PagesInStore(t *testing.T) {
	ctx := context.Background()
	store := &pageRecorder{MemoryStore: journal.NewMemoryStore()}
	for _, text := range []string{"one", "two", "three"} {
		_, err := store.CreateNote(ctx, text)
		require.NoError(t, err)
	}

	out, err := ListNotes(ctx, store, ListNotesInput{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 2}}, store.calls)
	require.Len(t, out.Items, 1)
	assert.Equal(t, Pagination{Limit: 2, Offset: 2, HasMore: false, Total: 3}, out.Pagination)

	out, err = ListNotes(ctx, store, ListNotesInput{Limit: 1})
	require.NoError(t, err)
	assert.True(t, out.Pagination.HasMore)
	assert.Equal(t, 3, out.Pagination.Total)

	store.calls = nil
	out, err = ListNotes(ctx, store, ListNotesInput{Query: "t"})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 0}}, store.calls, "a query filters the full list")
	assert.Equal(t, 2, out.Pagination.Total)
}

func TestFetchNote(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	n := commit(t, store, -5, "a", "ab")

	out, err := FetchNote(ctx, store, FetchNoteInput{ID: n.ID})
	require.NoError(t, err)
	assert.Equal(t, "ab", out.Content)
	assert.Equal(t, "ab", out.Title)
	assert.True(t, out.HasHistory)
	assert.Equal(t, 2, out.OperationCount)

	_, err = FetchNote(ctx, store, FetchNoteInput{ID: 999})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = FetchNote(ctx, store, FetchNoteInput{ID: -5})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestListJournal(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	n := commit(t, store, -3, "x", "xy", "y")

	out, err := ListJournal(ctx, store, ListJournalInput{SessionID: n.ID})
	require.NoError(t, err)
	require.Equal(t, 3, out.Count)
	for i, op := range out.Operations {
		assert.Equal(t, int64(i+1), op.SequenceNum)
		assert.Equal(t, n.ID, op.SessionID)
	}

	out, err = ListJournal(ctx, store, ListJournalInput{SessionID: -3})
	require.NoError(t, err)
	assert.Zero(t, out.Count)

	_, err = ListJournal(ctx, store, ListJournalInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	commit(t, store, -1, "saved")
	record(t, store, -2, "o", "or", "orphan")

	out, err := ListSessions(ctx, store, ListSessionsInput{})
	require.NoError(t, err)
	assert.Len(t, out.Sessions, 2)

	out, err = ListSessions(ctx, store, ListSessionsInput{ProvisionalOnly: true})
	require.NoError(t, err)
	require.Len(t, out.Sessions, 1)
	assert.Equal(t, int64(-2), out.Sessions[0].SessionID)
	assert.Equal(t, 3, out.Sessions[0].OperationCount)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	n := commit(t, store, -1, "k", "ke", "keep")

	out, err := Discard(ctx, store, DiscardInput{SessionID: n.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Removed)

	fetched, err := FetchNote(ctx, store, FetchNoteInput{ID: n.ID})
	require.NoError(t, err)
	assert.Equal(t, "keep", fetched.Content)
	assert.False(t, fetched.HasHistory)

	_, err = Playback(ctx, store, PlaybackInput{ID: n.ID})
	assert.True(t, errors.Is(err, errors.ErrNoHistory))
}
