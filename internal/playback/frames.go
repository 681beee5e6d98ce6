// Package playback rebuilds a recorded typing session into frames and derives
// the timing needed to replay it.
package playback

import (
	"fmt"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
)

// Frame is the document state right after one operation was applied.
// There is no frame for the empty document before the first operation.
type Frame struct {
	SequenceIndex  int    `json:"sequence_index"`
	Content        string `json:"content"`
	CursorPosition int    `json:"cursor_position"`
	TimestampMs    int64  `json:"timestamp_ms"`
}

// GenerateFrames replays ops against an empty document, one frame per operation.
//
// ops must be ordered by SequenceNum and numbered exactly 1..N. An empty log
// returns NO_HISTORY; a gap, duplicate, or operation that does not fit the
// text returns CORRUPT_JOURNAL. No partial result is returned on error.
func GenerateFrames(ops []edit.Operation) ([]Frame, error) {
	if len(ops) == 0 {
		return nil, errors.NewNoHistory(0)
	}

	if err := checkContiguous(ops); err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, len(ops))
	var text []rune
	for i, op := range ops {
		next, cursor, err := edit.ApplyRunes(text, op)
		if err != nil {
			return nil, errors.NewCorruptJournal(
				fmt.Sprintf("operation %d does not apply: %v", op.SequenceNum, err),
				map[string]any{"session_id": op.SessionID, "sequence_num": op.SequenceNum},
			)
		}
		text = next
		frames = append(frames, Frame{
			SequenceIndex:  i,
			Content:        string(text),
			CursorPosition: cursor,
			TimestampMs:    op.TimestampMs,
		})
	}
	return frames, nil
}

// FinalContent returns the text after all ops are applied.
func FinalContent(ops []edit.Operation) (string, error) {
	frames, err := GenerateFrames(ops)
	if err != nil {
		return "", err
	}
	return frames[len(frames)-1].Content, nil
}

func checkContiguous(ops []edit.Operation) error {
	session := ops[0].SessionID
	for i, op := range ops {
		want := int64(i + 1)
		if op.SequenceNum != want {
			return errors.NewCorruptJournal(
				fmt.Sprintf("sequence numbers are not contiguous: expected %d, found %d", want, op.SequenceNum),
				map[string]any{"session_id": op.SessionID, "expected": want, "found": op.SequenceNum},
			)
		}
		if op.SessionID != session {
			return errors.NewCorruptJournal(
				"operations belong to more than one session",
				map[string]any{"sessions": []int64{session, op.SessionID}},
			)
		}
	}
	return nil
}
