package ops

import (
	"context"
	"time"

	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/note"
	"github.com/hpungsan/thoughts/internal/playback"
)

// PlaybackInput contains parameters for the Playback operation.
type PlaybackInput struct {
	// ID is a note id, or a negative provisional id to replay an unsaved session.
	ID       int64
	Speed    float64       // default: 1
	MaxDelay time.Duration // 0 means uncapped
}

// PlaybackOutput contains the frames and timing for a replay.
type PlaybackOutput struct {
	SessionID int64            `json:"session_id"`
	Note      *note.Note       `json:"note,omitempty"`
	Speed     float64          `json:"speed"`
	Frames    []playback.Frame `json:"frames"`
	DelaysMs  []int64          `json:"delays_ms"`
	TotalMs   int64            `json:"total_ms"`
	// Consistent reports whether the last frame equals the saved note text.
	// Always true for provisional sessions.
	Consistent bool `json:"consistent"`

	delays []time.Duration
}

// Delays returns the inter-frame delays, len(Frames)-1 of them.
func (o *PlaybackOutput) Delays() []time.Duration {
	return o.delays
}

// Playback reconstructs the frames of a recorded session.
func Playback(ctx context.Context, store journal.Store, input PlaybackInput) (*PlaybackOutput, error) {
	if err := requireSessionID(input.ID); err != nil {
		return nil, err
	}
	speed := input.Speed
	if speed == 0 {
		speed = 1
	}

	out := &PlaybackOutput{SessionID: input.ID, Speed: speed, Consistent: true}
	if input.ID > 0 {
		n, err := store.GetNote(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		out.Note = &n
	}

	ops, err := store.List(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, errors.NewNoHistory(input.ID)
	}

	frames, err := playback.GenerateFrames(ops)
	if err != nil {
		return nil, err
	}
	delays, err := playback.CalculateFrameDelays(frames, speed, input.MaxDelay)
	if err != nil {
		return nil, err
	}

	out.Frames = frames
	out.delays = delays
	out.DelaysMs = make([]int64, len(delays))
	for i, d := range delays {
		out.DelaysMs[i] = d.Milliseconds()
		out.TotalMs += d.Milliseconds()
	}
	if out.Note != nil {
		out.Consistent = frames[len(frames)-1].Content == out.Note.Content
	}
	return out, nil
}

// RecoverInput contains parameters for the Recover operation.
type RecoverInput struct {
	SessionID int64 // provisional (negative) id
}

// RecoverOutput contains the result of the Recover operation.
type RecoverOutput struct {
	Note  note.Note `json:"note"`
	Moved int       `json:"moved"`
}

// Recover turns an orphaned provisional session into a note whose text is the
// session's replayed final content.
func Recover(ctx context.Context, store journal.Store, input RecoverInput) (*RecoverOutput, error) {
	if input.SessionID >= 0 {
		return nil, errors.NewInvalidRequest("session_id must be a provisional (negative) id")
	}
	ops, err := store.List(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, errors.NewNoHistory(input.SessionID)
	}
	content, err := playback.FinalContent(ops)
	if err != nil {
		return nil, err
	}

	n, err := store.CreateNote(ctx, content)
	if err != nil {
		return nil, err
	}
	moved, err := store.ReassignIdentity(ctx, input.SessionID, n.ID)
	if err != nil {
		return nil, err
	}
	n.OperationCount = moved
	return &RecoverOutput{Note: n, Moved: moved}, nil
}
