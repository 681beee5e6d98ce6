package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/errors"
)

// DefaultQueueSize is used when WriterOptions.QueueSize is not positive.
const DefaultQueueSize = 256

// ErrQueueFull is reported for an operation dropped because the queue was full.
var ErrQueueFull = &errors.ThoughtsError{
	Code:    errors.ErrInternal,
	Status:  503,
	Message: "append queue is full",
}

// WarnFunc is told about every operation that was not persisted.
type WarnFunc func(op edit.Operation, err error)

// WriterOptions configures a Writer.
type WriterOptions struct {
	QueueSize int
	Logger    *slog.Logger
	OnWarning WarnFunc
	// Timeout bounds each Append attempt. Zero means 5s.
	Timeout time.Duration
}

type request struct {
	op    edit.Operation
	flush chan struct{}
}

// Writer persists operations in the background so the typing path never waits
// on storage. A single goroutine drains a bounded queue in FIFO order; a failed
// append is retried once and then reported.
type Writer struct {
	log     Log
	logger  *slog.Logger
	onWarn  WarnFunc
	timeout time.Duration

	queue chan request
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewWriter starts the worker goroutine. Call Close to stop it.
func NewWriter(log Log, opts WriterOptions) *Writer {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	w := &Writer{
		log:     log,
		logger:  logger,
		onWarn:  opts.OnWarning,
		timeout: timeout,
		queue:   make(chan request, size),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue hands op to the worker without blocking. It reports false if the
// operation was dropped because the queue is full or the writer is closed.
func (w *Writer) Enqueue(op edit.Operation) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.warn(op, errors.NewSessionState("enqueue", "closed"))
		return false
	}
	select {
	case w.queue <- request{op: op}:
		return true
	default:
		w.dropped.Add(1)
		w.logger.Warn("edit operation dropped",
			"session_id", op.SessionID,
			"sequence_num", op.SequenceNum,
			"reason", "queue full",
		)
		w.warn(op, ErrQueueFull)
		return false
	}
}

// Flush waits until every operation enqueued before the call was handled.
func (w *Writer) Flush(ctx context.Context) error {
	marker := make(chan struct{})

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil
	}
	select {
	case w.queue <- request{flush: marker}:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return errors.NewCancelled("flush")
	}

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return errors.NewCancelled("flush")
	}
}

// Close drains the queue and stops the worker. Safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return nil
}

// Stats returns how many operations were written, dropped at enqueue, and
// failed after retry.
func (w *Writer) Stats() (written, dropped, failed int64) {
	return w.written.Load(), w.dropped.Load(), w.failed.Load()
}

func (w *Writer) run() {
	defer close(w.done)
	for req := range w.queue {
		if req.flush != nil {
			close(req.flush)
			continue
		}
		w.write(req.op)
	}
}

func (w *Writer) write(op edit.Operation) {
	err := w.append(op)
	if err == nil {
		return
	}
	if err == ErrSessionDiscarded {
		w.logger.Debug("late edit operation dropped", "session_id", op.SessionID, "sequence_num", op.SequenceNum)
		return
	}

	w.logger.Debug("append failed, retrying", "session_id", op.SessionID, "sequence_num", op.SequenceNum, "error", err)
	if err = w.append(op); err == nil {
		return
	}

	w.failed.Add(1)
	w.logger.Warn("edit operation not persisted",
		"session_id", op.SessionID,
		"sequence_num", op.SequenceNum,
		"error", err,
	)
	w.warn(op, err)
}

func (w *Writer) append(op edit.Operation) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.log.Append(ctx, op); err != nil {
		return err
	}
	w.written.Add(1)
	return nil
}

func (w *Writer) warn(op edit.Operation, err error) {
	if w.onWarn != nil {
		w.onWarn(op, err)
	}
}
