package tui

import "github.com/charmbracelet/lipgloss"

// ─── Colors ──────────────────────────────────────────────────────────────────

var (
	colorText    = lipgloss.Color("#e6e1cf")
	colorSubtext = lipgloss.Color("#8a8f98")
	colorOverlay = lipgloss.Color("#4b5263")
	colorAccent  = lipgloss.Color("#7fd1b9")
	colorRecord  = lipgloss.Color("#f07178")
	colorWarn    = lipgloss.Color("#ffb454")
	colorCursor  = lipgloss.Color("#1f2430")
)

// ─── Layout Styles ───────────────────────────────────────────────────────────

var (
	appStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorOverlay).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRecord).
			Bold(true).
			Padding(0, 1)
)

// ─── Recorder Styles ─────────────────────────────────────────────────────────

var (
	// Shown while keystrokes are being journaled
	recordBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCursor).
				Background(colorRecord).
				Padding(0, 1)

	idleBadgeStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Padding(0, 1)

	confirmStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorWarn).
			Foreground(colorWarn).
			Padding(0, 1).
			MarginTop(1)
)

// ─── Player Styles ───────────────────────────────────────────────────────────

var (
	frameStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorOverlay).
			Padding(0, 1)

	caretStyle = lipgloss.NewStyle().
			Foreground(colorCursor).
			Background(colorAccent)

	progressFilledStyle = lipgloss.NewStyle().
				Foreground(colorAccent)

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(colorOverlay)

	speedStyle = lipgloss.NewStyle().
			Foreground(colorWarn).
			Bold(true)
)
