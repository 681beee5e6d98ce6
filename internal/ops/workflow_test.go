package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/session"
)

// TestFullWorkflow exercises the note lifecycle:
// record → commit → list → fetch → playback → export → import → playback
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := sqliteStore(t, cfg.BaseDir)

	writer := journal.NewWriter(store, journal.WriterOptions{})
	defer writer.Close()
	rec := session.NewRecorder(store, store, writer)

	// 1. Record
	require.NoError(t, rec.Start(""))
	for _, text := range []string{"d", "de", "dea", "dear", "dear ", "dear d", "dear diary"} {
		rec.Observe(text, edit.RuneLen(text))
	}

	// 2. Commit
	n, err := rec.Commit(ctx, "dear diary")
	require.NoError(t, err)
	require.Equal(t, 7, n.OperationCount)

	// 3. List
	list, err := ListNotes(ctx, store, ListNotesInput{Query: "diary"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, n.ID, list.Items[0].ID)

	// 4. Fetch
	fetched, err := FetchNote(ctx, store, FetchNoteInput{ID: n.ID})
	require.NoError(t, err)
	require.True(t, fetched.HasHistory)

	// 5. Playback
	replay, err := Playback(ctx, store, PlaybackInput{ID: n.ID, Speed: 2})
	require.NoError(t, err)
	require.Len(t, replay.Frames, 7)
	require.True(t, replay.Consistent)

	// 6. Export
	exported, err := Export(ctx, store, cfg, ExportInput{})
	require.NoError(t, err)
	require.Equal(t, 7, exported.Operations)

	// 7. Import into a fresh bolt store
	bolt, err := journal.OpenBolt(filepath.Join(t.TempDir(), journal.BoltFileName))
	require.NoError(t, err)
	defer bolt.Close()
	imported, err := Import(ctx, bolt, cfg, ImportInput{Path: exported.Path})
	require.NoError(t, err)
	require.Equal(t, 1, imported.Imported)

	// 8. Playback matches
	again, err := Playback(ctx, bolt, PlaybackInput{ID: n.ID, Speed: 2})
	require.NoError(t, err)
	require.Equal(t, replay.Frames, again.Frames)
	require.Equal(t, replay.DelaysMs, again.DelaysMs)

	// 9. No orphan sessions left behind
	sessions, err := ListSessions(ctx, store, ListSessionsInput{ProvisionalOnly: true})
	require.NoError(t, err)
	require.Empty(t, sessions.Sessions)
}
