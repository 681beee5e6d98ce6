// Package logging builds the process logger: a slog fan-out to stderr, an
// optional JSON file under the base dir, and the systemd journal when present.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"

	"github.com/hpungsan/thoughts/internal/config"
)

// FileName is the JSON log written under the base dir when log_file is set.
const FileName = "thoughts.log"

// Options selects the handlers New fans out to.
type Options struct {
	Level   string
	Format  string    // "text" (default) or "json"
	Stderr  io.Writer // nil disables the terminal handler
	File    string    // empty disables the JSON file handler
	Journal bool      // try the systemd journal
}

// Logger owns the handlers' resources.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *os.File
}

// SetLevel changes the level of every handler.
func (l *Logger) SetLevel(lvl slog.Level) {
	l.level.Set(lvl)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// New builds a Logger. A journal that cannot be reached is reported on the
// terminal handler and skipped.
func New(opts Options) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	handlerOpts := &slog.HandlerOptions{Level: level}

	l := &Logger{level: level}
	var handlers []slog.Handler

	var terminal slog.Handler
	if opts.Stderr != nil {
		if opts.Format == "json" {
			terminal = slog.NewJSONHandler(opts.Stderr, handlerOpts)
		} else {
			terminal = slog.NewTextHandler(opts.Stderr, handlerOpts)
		}
		handlers = append(handlers, terminal)
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
	}

	if opts.Journal {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminal != nil {
				record := slog.NewRecord(time.Now(), slog.LevelDebug, "systemd journal unavailable", 0)
				record.Add("error", err)
				_ = terminal.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journal)
		}
	}

	l.Logger = slog.New(slogmulti.Fanout(handlers...))
	return l, nil
}

// FromConfig builds the logger described by cfg.
func FromConfig(cfg *config.Config, stderr io.Writer) (*Logger, error) {
	opts := Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Stderr:  stderr,
		Journal: true,
	}
	if cfg.LogFile {
		opts.File = filepath.Join(cfg.BaseDir, FileName)
	}
	return New(opts)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// toJournalKey upper-cases and replaces anything journald rejects in a field name.
func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}
