// Package tui implements the terminal recorder and player.
//
// One Model holds all state. The recorder screen wraps a textarea and feeds
// every change to a session.Recorder; the player screen steps a
// playback.Player with tea.Tick.
package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/note"
	"github.com/hpungsan/thoughts/internal/ops"
	"github.com/hpungsan/thoughts/internal/playback"
	"github.com/hpungsan/thoughts/internal/session"
)

// storeTimeout bounds each storage call made from the event loop.
const storeTimeout = 5 * time.Second

// ─── Screens ─────────────────────────────────────────────────────────────────

type Screen int

const (
	ScreenRecorder Screen = iota
	ScreenPlayer
)

// ─── Custom Messages ─────────────────────────────────────────────────────────

// tickMsg advances the player. gen drops ticks scheduled before the last
// state change.
type tickMsg struct {
	gen int
}

// ─── Model ───────────────────────────────────────────────────────────────────

type Model struct {
	store    journal.Store
	cfg      *config.Config
	logger   *slog.Logger
	recorder *session.Recorder

	Version string
	Screen  Screen
	Width   int
	Height  int

	ErrorMsg  string
	StatusMsg string

	// Recorder
	Editor    textarea.Model
	LastSaved *note.Note

	// Player
	Player      playback.Player
	PlayerTitle string
	gen         int
}

// NewRecorder creates a model on the recorder screen. writer receives the
// journaled operations; the caller flushes and closes it after the program
// exits.
func NewRecorder(store journal.Store, writer session.Appender, cfg *config.Config, logger *slog.Logger, version string) Model {
	if logger == nil {
		logger = slog.Default()
	}
	ta := textarea.New()
	ta.Placeholder = "Type a thought..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(72)
	ta.SetHeight(10)
	ta.Focus()

	return Model{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		recorder: session.NewRecorder(store, store, writer, session.WithLogger(logger)),
		Version:  version,
		Screen:   ScreenRecorder,
		Editor:   ta,
	}
}

// NewPlayer creates a model on the player screen for a playback result.
// Leaving the player quits the program.
func NewPlayer(cfg *config.Config, out *ops.PlaybackOutput, version string) (Model, error) {
	p, err := playback.NewPlayer(out.Frames, out.Speed, cfg.MaxDelay())
	if err != nil {
		return Model{}, err
	}
	return Model{
		cfg:         cfg,
		logger:      slog.Default(),
		Version:     version,
		Screen:      ScreenPlayer,
		Player:      p,
		PlayerTitle: playerTitle(out),
	}, nil
}

// Recording reports whether keystrokes are currently journaled.
func (m Model) Recording() bool {
	return m.recorder != nil && m.recorder.State() != session.Idle
}

// Init starts the cursor blink on the recorder screen.
func (m Model) Init() tea.Cmd {
	if m.Screen == ScreenRecorder {
		return textarea.Blink
	}
	return nil
}

// ─── Commands ────────────────────────────────────────────────────────────────

// schedule bumps the generation and, while playing, returns the tick for the
// next frame.
func (m Model) schedule() (Model, tea.Cmd) {
	m.gen++
	d, ok := m.Player.NextDelay()
	if !ok {
		return m, nil
	}
	gen := m.gen
	return m, tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func playerTitle(out *ops.PlaybackOutput) string {
	if out.Note != nil {
		return note.Title(out.Note.Content)
	}
	return "unsaved session"
}
