package tui

import (
	"fmt"
	"strings"

	"github.com/hpungsan/thoughts/internal/session"
)

const progressWidth = 40

// ─── View (main router) ──────────────────────────────────────────────────────

func (m Model) View() string {
	var content string

	switch m.Screen {
	case ScreenRecorder:
		content = m.viewRecorder()
	case ScreenPlayer:
		content = m.viewPlayer()
	default:
		content = "Unknown screen"
	}

	if m.ErrorMsg != "" {
		content += "\n" + errorStyle.Render("Error: "+m.ErrorMsg)
	}
	return appStyle.Render(content)
}

// ─── Recorder ────────────────────────────────────────────────────────────────

func (m Model) viewRecorder() string {
	var b strings.Builder

	badge := idleBadgeStyle.Render("○ not recording")
	if m.Recording() {
		badge = recordBadgeStyle.Render(fmt.Sprintf("● REC %d", m.recorder.OperationCount()))
	}
	b.WriteString(headerStyle.Render("thoughts " + m.Version + "  " + badge))
	b.WriteString("\n")
	b.WriteString(m.Editor.View())
	b.WriteString("\n")

	if m.recorder.State() == session.ConfirmingDiscard {
		b.WriteString(confirmStyle.Render(
			fmt.Sprintf("Discard the typing history (%d edits)?  d discard · k keep and save · esc keep recording",
				m.recorder.OperationCount())))
		b.WriteString("\n")
		return b.String()
	}

	if m.StatusMsg != "" {
		b.WriteString(statusStyle.Render(m.StatusMsg))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("ctrl+r record · ctrl+s save · ctrl+p replay last · esc close · ctrl+c quit"))
	return b.String()
}

// ─── Player ──────────────────────────────────────────────────────────────────

func (m Model) viewPlayer() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("▶ " + m.PlayerTitle))
	b.WriteString("\n")

	f := m.Player.Frame()
	b.WriteString(frameStyle.Render(renderCaret(f.Content, f.CursorPosition)))
	b.WriteString("\n\n")

	state := "paused"
	if m.Player.Playing() {
		state = "playing"
	}
	b.WriteString(fmt.Sprintf("%s  %d/%d  %s  %s\n",
		renderProgress(m.Player.Index(), m.Player.Len()),
		m.Player.Index()+1, m.Player.Len(),
		speedStyle.Render(fmt.Sprintf("%gx", m.Player.Speed())),
		state))

	quit := "q back"
	if m.recorder == nil {
		quit = "q quit"
	}
	b.WriteString(helpStyle.Render("space play/pause · ←/→ step · +/- speed · r restart · " + quit))
	return b.String()
}

// renderCaret draws the text with the caret at rune offset pos.
func renderCaret(text string, pos int) string {
	runes := []rune(text)
	pos = max(0, min(pos, len(runes)))
	if pos < len(runes) && runes[pos] != '\n' {
		return string(runes[:pos]) + caretStyle.Render(string(runes[pos])) + string(runes[pos+1:])
	}
	return string(runes[:pos]) + caretStyle.Render(" ") + string(runes[pos:])
}

func renderProgress(index, total int) string {
	if total == 0 {
		return progressEmptyStyle.Render(strings.Repeat("─", progressWidth))
	}
	filled := progressWidth
	if total > 1 {
		filled = index * progressWidth / (total - 1)
	}
	return progressFilledStyle.Render(strings.Repeat("━", filled)) +
		progressEmptyStyle.Render(strings.Repeat("─", progressWidth-filled))
}
