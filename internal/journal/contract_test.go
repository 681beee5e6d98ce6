package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/db"
	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/note"
)

type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"sqlite": func(t *testing.T) Store {
			database, err := db.Init(t.TempDir())
			require.NoError(t, err)
			s := NewSQLiteStore(database)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"bolt": func(t *testing.T) Store {
			s, err := OpenBolt(filepath.Join(t.TempDir(), BoltFileName))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
	}
}

func insertOp(session int64, pos int, content string) edit.Operation {
	return edit.Operation{SessionID: session, Type: edit.OpInsert, Position: pos, Content: content}
}

func TestStoreContract(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Run("append assigns sequence and id", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				first, err := s.Append(ctx, insertOp(-1, 0, "h"))
				require.NoError(t, err)
				second, err := s.Append(ctx, insertOp(-1, 1, "é☕"))
				require.NoError(t, err)

				assert.Equal(t, int64(1), first.SequenceNum)
				assert.Equal(t, int64(2), second.SequenceNum)
				assert.NotEmpty(t, first.ID)
				assert.NotEqual(t, first.ID, second.ID)
				assert.Equal(t, 2, second.ContentLength)
				assert.NotZero(t, second.TimestampMs)

				ops, err := s.List(ctx, -1)
				require.NoError(t, err)
				assert.Equal(t, []edit.Operation{first, second}, ops)
			})

			t.Run("caller sequence kept and duplicates conflict", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				op := insertOp(-2, 0, "a")
				op.SequenceNum = 2
				got, err := s.Append(ctx, op)
				require.NoError(t, err)
				assert.Equal(t, int64(2), got.SequenceNum)

				op.SequenceNum = 1
				_, err = s.Append(ctx, op)
				require.NoError(t, err)

				ops, err := s.List(ctx, -2)
				require.NoError(t, err)
				require.Len(t, ops, 2)
				assert.Equal(t, int64(1), ops[0].SequenceNum)
				assert.Equal(t, int64(2), ops[1].SequenceNum)

				op.SequenceNum = 2
				_, err = s.Append(ctx, op)
				assert.True(t, errors.Is(err, errors.ErrConflict))
			})

			t.Run("append rejects invalid operations", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				_, err := s.Append(ctx, edit.Operation{SessionID: -1, Type: "paste"})
				assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

				_, err = s.Append(ctx, edit.Operation{SessionID: -1, Type: edit.OpInsert, Position: -1})
				assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
			})

			t.Run("sessions are isolated", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				_, err := s.Append(ctx, insertOp(-3, 0, "a"))
				require.NoError(t, err)
				other, err := s.Append(ctx, insertOp(-4, 0, "b"))
				require.NoError(t, err)
				assert.Equal(t, int64(1), other.SequenceNum)

				ops, err := s.List(ctx, 999)
				require.NoError(t, err)
				assert.Empty(t, ops)

				sessions, err := s.Sessions(ctx)
				require.NoError(t, err)
				assert.Len(t, sessions, 2)
			})

			t.Run("reassign relabels and late appends follow", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				for _, text := range []string{"a", "b", "c"} {
					_, err := s.Append(ctx, insertOp(-5, 0, text))
					require.NoError(t, err)
				}
				n, err := s.CreateNote(ctx, "cba")
				require.NoError(t, err)

				moved, err := s.ReassignIdentity(ctx, -5, n.ID)
				require.NoError(t, err)
				assert.Equal(t, 3, moved)

				old, err := s.List(ctx, -5)
				require.NoError(t, err)
				assert.Empty(t, old)

				late, err := s.Append(ctx, insertOp(-5, 3, "!"))
				require.NoError(t, err)
				assert.Equal(t, n.ID, late.SessionID)
				assert.Equal(t, int64(4), late.SequenceNum)

				ops, err := s.List(ctx, n.ID)
				require.NoError(t, err)
				require.Len(t, ops, 4)
				for i, op := range ops {
					assert.Equal(t, n.ID, op.SessionID)
					assert.Equal(t, int64(i+1), op.SequenceNum)
				}

				got, err := s.GetNote(ctx, n.ID)
				require.NoError(t, err)
				assert.Equal(t, 4, got.OperationCount)
			})

			t.Run("reassign to a second target conflicts", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				_, err := s.Append(ctx, insertOp(-6, 0, "x"))
				require.NoError(t, err)
				_, err = s.ReassignIdentity(ctx, -6, 10)
				require.NoError(t, err)

				_, err = s.ReassignIdentity(ctx, -6, 10)
				assert.NoError(t, err, "repeating the same reassignment is allowed")

				_, err = s.ReassignIdentity(ctx, -6, 11)
				assert.True(t, errors.Is(err, errors.ErrConflict))

				ops, err := s.List(ctx, 10)
				require.NoError(t, err)
				assert.Len(t, ops, 1, "failed reassign must not split the journal")
			})

			t.Run("reassign validates ids", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				_, err := s.ReassignIdentity(ctx, -1, -1)
				assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
				_, err = s.ReassignIdentity(ctx, -1, 0)
				assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
			})

			t.Run("discard removes and drops late appends", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				for _, text := range []string{"a", "b"} {
					_, err := s.Append(ctx, insertOp(-7, 0, text))
					require.NoError(t, err)
				}

				removed, err := s.Discard(ctx, -7)
				require.NoError(t, err)
				assert.Equal(t, 2, removed)

				_, err = s.Append(ctx, insertOp(-7, 0, "late"))
				assert.Equal(t, ErrSessionDiscarded, err)

				ops, err := s.List(ctx, -7)
				require.NoError(t, err)
				assert.Empty(t, ops)

				removed, err = s.Discard(ctx, -7)
				require.NoError(t, err)
				assert.Zero(t, removed)

				_, err = s.ReassignIdentity(ctx, -7, 20)
				assert.True(t, errors.Is(err, errors.ErrConflict))
			})

			t.Run("discarding a note drops late appends through its alias", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				_, err := s.Append(ctx, insertOp(-5, 0, "a"))
				require.NoError(t, err)
				_, err = s.ReassignIdentity(ctx, -5, 7)
				require.NoError(t, err)

				removed, err := s.Discard(ctx, 7)
				require.NoError(t, err)
				assert.Equal(t, 1, removed)

				_, err = s.Append(ctx, insertOp(-5, 1, "b"))
				assert.Equal(t, ErrSessionDiscarded, err)

				ops, err := s.List(ctx, 7)
				require.NoError(t, err)
				assert.Empty(t, ops)
			})

			t.Run("notes", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				first, err := s.CreateNote(ctx, "first")
				require.NoError(t, err)
				second, err := s.CreateNote(ctx, "second")
				require.NoError(t, err)
				assert.Greater(t, first.ID, int64(0))
				assert.Greater(t, second.ID, first.ID)

				got, err := s.GetNote(ctx, first.ID)
				require.NoError(t, err)
				assert.Equal(t, "first", got.Content)
				assert.Zero(t, got.OperationCount)

				_, err = s.GetNote(ctx, 9999)
				assert.True(t, errors.Is(err, errors.ErrNotFound))

				notes, err := s.ListNotes(ctx, 0, 0)
				require.NoError(t, err)
				require.Len(t, notes, 2)
				assert.Equal(t, second.ID, notes[0].ID)

				notes, err = s.ListNotes(ctx, 1, 1)
				require.NoError(t, err)
				require.Len(t, notes, 1)
				assert.Equal(t, first.ID, notes[0].ID)

				count, err := s.CountNotes(ctx)
				require.NoError(t, err)
				assert.Equal(t, 2, count)
			})

			t.Run("import note with journal", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				ops := []edit.Operation{insertOp(0, 0, "hi"), insertOp(0, 2, "!")}
				err := s.ImportNote(ctx, note.Note{ID: 40, Content: "hi!", CreatedAt: 5}, ops)
				require.NoError(t, err)

				got, err := s.GetNote(ctx, 40)
				require.NoError(t, err)
				assert.Equal(t, 2, got.OperationCount)

				journal, err := s.List(ctx, 40)
				require.NoError(t, err)
				require.Len(t, journal, 2)
				assert.Equal(t, int64(2), journal[1].SequenceNum)

				err = s.ImportNote(ctx, note.Note{ID: 40, Content: "again"}, nil)
				assert.True(t, errors.Is(err, errors.ErrConflict))

				next, err := s.CreateNote(ctx, "after import")
				require.NoError(t, err)
				assert.Greater(t, next.ID, int64(40))
			})
		})
	}
}

func TestOpen(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.BaseDir = t.TempDir()
			cfg.StoreBackend = backend

			s, err := Open(cfg)
			require.NoError(t, err)
			defer s.Close()

			_, err = s.Append(context.Background(), insertOp(-1, 0, "x"))
			require.NoError(t, err)
			assert.DirExists(t, cfg.ExportsDir())
		})
	}

	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()
	cfg.StoreBackend = "postgres"
	_, err := Open(cfg)
	assert.Error(t, err)
}
