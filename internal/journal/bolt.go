package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/note"
)

var (
	bucketNotes     = []byte("notes")
	bucketSessions  = []byte("sessions")
	bucketAliases   = []byte("aliases")
	bucketDiscarded = []byte("discarded")
)

// BoltStore keeps notes and journals in a single bbolt file. Each session is
// a nested bucket under "sessions" keyed by big-endian sequence number, so a
// cursor walk yields replay order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	b, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = b.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketNotes, bucketSessions, bucketAliases, bucketDiscarded} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &BoltStore{db: b}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// update runs fn in a write transaction. Errors already typed as
// ThoughtsError pass through; anything else becomes INTERNAL.
func (s *BoltStore) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("journal write")
	}
	return wrapBolt(s.db.Update(fn))
}

func (s *BoltStore) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("journal read")
	}
	return wrapBolt(s.db.View(fn))
}

func (s *BoltStore) Append(ctx context.Context, op edit.Operation) (edit.Operation, error) {
	op, err := prepare(op)
	if err != nil {
		return op, err
	}

	err = s.update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(bucketDiscarded).Get(itob(op.SessionID)) != nil {
			return ErrSessionDiscarded
		}
		if v := tx.Bucket(bucketAliases).Get(itob(op.SessionID)); v != nil {
			if tx.Bucket(bucketDiscarded).Get(v) != nil {
				return ErrSessionDiscarded
			}
			op.SessionID = btoi(v)
		}

		sb, err := tx.Bucket(bucketSessions).CreateBucketIfNotExists(itob(op.SessionID))
		if err != nil {
			return err
		}
		if op.SequenceNum == 0 {
			op.SequenceNum = 1
			if k, _ := sb.Cursor().Last(); k != nil {
				op.SequenceNum = btoi(k) + 1
			}
		}
		return putOperation(sb, op)
	})
	return op, err
}

func (s *BoltStore) List(ctx context.Context, sessionID int64) ([]edit.Operation, error) {
	var ops []edit.Operation
	err := s.view(ctx, func(tx *bolt.Tx) error {
		var err error
		ops, err = readSession(tx.Bucket(bucketSessions).Bucket(itob(sessionID)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func (s *BoltStore) Sessions(ctx context.Context) ([]edit.SessionInfo, error) {
	infos := []edit.SessionInfo{}
	err := s.view(ctx, func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		return sessions.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			ops, err := readSession(sessions.Bucket(k))
			if err != nil {
				return err
			}
			if len(ops) > 0 {
				infos = append(infos, summarize(btoi(k), ops))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortSessions(infos)
	return infos, nil
}

func (s *BoltStore) ReassignIdentity(ctx context.Context, oldID, newID int64) (int, error) {
	if err := validateReassign(oldID, newID); err != nil {
		return 0, err
	}

	var moved int
	err := s.update(ctx, func(tx *bolt.Tx) error {
		aliases := tx.Bucket(bucketAliases)
		if v := aliases.Get(itob(oldID)); v != nil && btoi(v) != newID {
			return conflictAlias(oldID, btoi(v), newID)
		}
		if tx.Bucket(bucketDiscarded).Get(itob(oldID)) != nil {
			return conflictDiscarded(oldID)
		}

		sessions := tx.Bucket(bucketSessions)
		if from := sessions.Bucket(itob(oldID)); from != nil {
			ops, err := readSession(from)
			if err != nil {
				return err
			}
			to, err := sessions.CreateBucketIfNotExists(itob(newID))
			if err != nil {
				return err
			}
			for _, op := range ops {
				op.SessionID = newID
				if err := putOperation(to, op); err != nil {
					if errors.Is(err, errors.ErrConflict) {
						return errors.NewConflict(fmt.Sprintf("session %d already has operations with the same sequence numbers", newID))
					}
					return err
				}
			}
			if err := sessions.DeleteBucket(itob(oldID)); err != nil {
				return err
			}
			moved = len(ops)
		}

		var repoint [][]byte
		err := aliases.ForEach(func(k, v []byte) error {
			if btoi(v) == oldID {
				repoint = append(repoint, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range repoint {
			if err := aliases.Put(k, itob(newID)); err != nil {
				return err
			}
		}
		return aliases.Put(itob(oldID), itob(newID))
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (s *BoltStore) Discard(ctx context.Context, sessionID int64) (int, error) {
	var removed int
	err := s.update(ctx, func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		key := itob(sessionID)
		if sb := sessions.Bucket(key); sb != nil {
			removed = countKeys(sb)
			if err := sessions.DeleteBucket(key); err != nil {
				return err
			}
		}
		discarded := tx.Bucket(bucketDiscarded)
		if discarded.Get(key) != nil {
			return nil
		}
		return discarded.Put(key, itob(time.Now().Unix()))
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *BoltStore) CreateNote(ctx context.Context, content string) (note.Note, error) {
	n := note.Note{Content: content, CreatedAt: time.Now().Unix()}
	err := s.update(ctx, func(tx *bolt.Tx) error {
		notes := tx.Bucket(bucketNotes)
		id, err := notes.NextSequence()
		if err != nil {
			return err
		}
		n.ID = int64(id)
		return putNote(notes, n)
	})
	if err != nil {
		return note.Note{}, err
	}
	return n, nil
}

func (s *BoltStore) GetNote(ctx context.Context, id int64) (note.Note, error) {
	var n note.Note
	err := s.view(ctx, func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketNotes).Get(itob(id))
		if v == nil {
			return errors.NewNotFound(strconv.FormatInt(id, 10))
		}
		if err := json.Unmarshal(v, &n); err != nil {
			return err
		}
		n.OperationCount = countKeys(tx.Bucket(bucketSessions).Bucket(itob(id)))
		return nil
	})
	if err != nil {
		return note.Note{}, err
	}
	return n, nil
}

func (s *BoltStore) ListNotes(ctx context.Context, limit, offset int) ([]note.Note, error) {
	notes := []note.Note{}
	err := s.view(ctx, func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		return tx.Bucket(bucketNotes).ForEach(func(k, v []byte) error {
			var n note.Note
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			n.OperationCount = countKeys(sessions.Bucket(k))
			notes = append(notes, n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortNotes(notes)
	return page(notes, limit, offset), nil
}

func (s *BoltStore) CountNotes(ctx context.Context) (int, error) {
	var count int
	err := s.view(ctx, func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketNotes).Stats().KeyN
		return nil
	})
	return count, err
}

func (s *BoltStore) ImportNote(ctx context.Context, n note.Note, ops []edit.Operation) error {
	if n.ID <= 0 {
		return errors.NewInvalidRequest("note id must be positive")
	}
	return s.update(ctx, func(tx *bolt.Tx) error {
		notes := tx.Bucket(bucketNotes)
		if notes.Get(itob(n.ID)) != nil {
			return errors.NewConflict(fmt.Sprintf("note %d already exists", n.ID))
		}
		n.OperationCount = 0
		if err := putNote(notes, n); err != nil {
			return err
		}
		if uint64(n.ID) > notes.Sequence() {
			if err := notes.SetSequence(uint64(n.ID)); err != nil {
				return err
			}
		}
		if len(ops) == 0 {
			return nil
		}

		sb, err := tx.Bucket(bucketSessions).CreateBucketIfNotExists(itob(n.ID))
		if err != nil {
			return err
		}
		for i, op := range ops {
			op, err := prepareImported(op, n.ID, i)
			if err != nil {
				return err
			}
			if err := putOperation(sb, op); err != nil {
				return err
			}
		}
		return nil
	})
}

// putOperation stores op under its sequence number, refusing to overwrite.
func putOperation(sb *bolt.Bucket, op edit.Operation) error {
	key := itob(op.SequenceNum)
	if sb.Get(key) != nil {
		return conflictSequence(op)
	}
	data, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return sb.Put(key, data)
}

func putNote(notes *bolt.Bucket, n note.Note) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return notes.Put(itob(n.ID), data)
}

// readSession decodes a session bucket in key (sequence) order. A nil bucket
// is an empty session.
func readSession(sb *bolt.Bucket) ([]edit.Operation, error) {
	ops := []edit.Operation{}
	if sb == nil {
		return ops, nil
	}
	err := sb.ForEach(func(k, v []byte) error {
		var op edit.Operation
		if err := json.Unmarshal(v, &op); err != nil {
			return fmt.Errorf("decode operation %d: %w", btoi(k), err)
		}
		ops = append(ops, op)
		return nil
	})
	return ops, err
}

func countKeys(b *bolt.Bucket) int {
	if b == nil {
		return 0
	}
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

func wrapBolt(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.ThoughtsError); ok {
		return err
	}
	return errors.NewInternal(err)
}

// itob encodes an id as 8 big-endian bytes.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
