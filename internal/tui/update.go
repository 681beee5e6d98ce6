package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/note"
	"github.com/hpungsan/thoughts/internal/ops"
	"github.com/hpungsan/thoughts/internal/playback"
	"github.com/hpungsan/thoughts/internal/session"
)

// ─── Update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if m.Width > 8 {
			m.Editor.SetWidth(min(m.Width-6, 100))
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit. An unsaved session stays in the journal for recovery.
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.Screen == ScreenPlayer {
			return m.handlePlayerKeys(msg.String())
		}
		return m.handleRecorderKeys(msg)

	case tickMsg:
		if m.Screen != ScreenPlayer || msg.gen != m.gen {
			return m, nil
		}
		m.Player = m.Player.Advance()
		return m.schedule()
	}

	if m.Screen == ScreenRecorder {
		return m.updateEditor(msg)
	}
	return m, nil
}

// updateEditor forwards msg to the text box and journals any change. Pasted
// text arrives as a non-key message, so every path goes through here.
func (m Model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.Editor.Value()
	var cmd tea.Cmd
	m.Editor, cmd = m.Editor.Update(msg)
	if after := m.Editor.Value(); after != before {
		m.recorder.Observe(after, m.cursorOffset())
	}
	return m, cmd
}

// ─── Recorder ────────────────────────────────────────────────────────────────

func (m Model) handleRecorderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.ErrorMsg = ""

	if m.recorder.State() == session.ConfirmingDiscard {
		return m.handleConfirmKeys(msg.String())
	}

	switch msg.String() {
	case "ctrl+r":
		return m.toggleRecord()
	case "ctrl+s":
		return m.save()
	case "ctrl+p":
		return m.playLastSaved()
	case "esc":
		if m.Recording() {
			m.recorder.RequestClose()
			return m, nil
		}
		return m, tea.Quit
	}

	return m.updateEditor(msg)
}

func (m Model) handleConfirmKeys(key string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	switch key {
	case "d", "y":
		if err := m.recorder.ConfirmDiscard(ctx); err != nil {
			m.ErrorMsg = err.Error()
			return m, nil
		}
		m.StatusMsg = "Typing history discarded"
	case "k", "s":
		return m.commit(ctx, m.recorder.KeepHistory)
	case "esc", "n":
		if err := m.recorder.CancelDiscard(); err != nil {
			m.ErrorMsg = err.Error()
		}
	}
	return m, nil
}

func (m Model) toggleRecord() (tea.Model, tea.Cmd) {
	if m.Recording() {
		if m.recorder.Stop() == session.Idle {
			m.StatusMsg = "Recording stopped"
		}
		return m, nil
	}
	if err := m.recorder.Start(m.Editor.Value()); err != nil {
		m.ErrorMsg = err.Error()
		return m, nil
	}
	m.StatusMsg = ""
	return m, nil
}

func (m Model) save() (tea.Model, tea.Cmd) {
	if strings.TrimSpace(m.Editor.Value()) == "" {
		m.ErrorMsg = "nothing to save"
		return m, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return m.commit(ctx, m.recorder.Commit)
}

func (m Model) commit(ctx context.Context, fn func(context.Context, string) (note.Note, error)) (tea.Model, tea.Cmd) {
	n, err := fn(ctx, m.Editor.Value())
	if err != nil {
		m.ErrorMsg = err.Error()
		return m, nil
	}
	m.LastSaved = &n
	m.Editor.Reset()
	m.recorder.Observe("", 0)
	if n.HasHistory() {
		m.StatusMsg = fmt.Sprintf("Saved note #%d with %d edits (ctrl+p to replay)", n.ID, n.OperationCount)
	} else {
		m.StatusMsg = fmt.Sprintf("Saved note #%d", n.ID)
	}
	m.logger.Info("note saved", "note_id", n.ID, "operations", n.OperationCount)
	return m, nil
}

func (m Model) playLastSaved() (tea.Model, tea.Cmd) {
	if m.LastSaved == nil || !m.LastSaved.HasHistory() {
		m.ErrorMsg = "no recorded note to replay"
		return m, nil
	}
	if m.Recording() {
		m.ErrorMsg = "stop recording before replaying"
		return m, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	out, err := ops.Playback(ctx, m.store, ops.PlaybackInput{
		ID:       m.LastSaved.ID,
		Speed:    m.cfg.DefaultSpeed,
		MaxDelay: m.cfg.MaxDelay(),
	})
	if err != nil {
		m.ErrorMsg = err.Error()
		return m, nil
	}
	p, err := playback.NewPlayer(out.Frames, out.Speed, m.cfg.MaxDelay())
	if err != nil {
		m.ErrorMsg = err.Error()
		return m, nil
	}
	m.Player = p.Play()
	m.PlayerTitle = playerTitle(out)
	m.Screen = ScreenPlayer
	m.Editor.Blur()
	return m.schedule()
}

// cursorOffset is the caret position in runes from the start of the text.
func (m Model) cursorOffset() int {
	lines := strings.Split(m.Editor.Value(), "\n")
	row := min(m.Editor.Line(), len(lines)-1)
	offset := 0
	for _, line := range lines[:row] {
		offset += edit.RuneLen(line) + 1
	}
	info := m.Editor.LineInfo()
	return offset + info.StartColumn + info.ColumnOffset
}

// ─── Player ──────────────────────────────────────────────────────────────────

func (m Model) handlePlayerKeys(key string) (tea.Model, tea.Cmd) {
	m.ErrorMsg = ""

	switch key {
	case " ", "p":
		m.Player = m.Player.Toggle()
	case "right", "l":
		m.Player = m.Player.Seek(m.Player.Index() + 1)
	case "left", "h":
		m.Player = m.Player.Seek(m.Player.Index() - 1)
	case "home", "g":
		m.Player = m.Player.Seek(0)
	case "end", "G":
		m.Player = m.Player.Seek(m.Player.Len() - 1)
	case "r":
		m.Player = m.Player.Restart()
	case "+", "=":
		return m.setSpeed(playback.NextSpeed(m.Player.Speed()))
	case "-", "_":
		return m.setSpeed(playback.PrevSpeed(m.Player.Speed()))
	case "q", "esc":
		if m.recorder == nil {
			return m, tea.Quit
		}
		m.gen++
		m.Player = m.Player.Pause()
		m.Screen = ScreenRecorder
		cmd := m.Editor.Focus()
		return m, cmd
	default:
		return m, nil
	}
	return m.schedule()
}

func (m Model) setSpeed(speed float64) (tea.Model, tea.Cmd) {
	p, err := m.Player.SetSpeed(speed)
	if err != nil {
		m.ErrorMsg = err.Error()
		return m, nil
	}
	m.Player = p
	return m.schedule()
}
