// Package mcp exposes notes and their keystroke journals as MCP tools.
package mcp

import (
	"log/slog"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/journal"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"note_list": {
		def:     noteListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteList },
	},
	"note_fetch": {
		def:     noteFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteFetch },
	},
	"note_export": {
		def:     noteExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"note_import": {
		def:     noteImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"journal_list": {
		def:     journalListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleJournalList },
	},
	"journal_sessions": {
		def:     journalSessionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessions },
	},
	"journal_playback": {
		def:     journalPlaybackToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlayback },
	},
	"journal_discard": {
		def:     journalDiscardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiscard },
	},
	"journal_recover": {
		def:     journalRecoverToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecover },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with every tool not listed in
// cfg.DisabledTools registered.
func NewServer(store journal.Store, cfg *config.Config, logger *slog.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"thoughts",
		version,
		server.WithToolCapabilities(true),
	)

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := NewHandlers(store, cfg, logger)
	for name, entry := range toolRegistry {
		if slices.Contains(cfg.DisabledTools, name) {
			logger.Debug("tool disabled", "tool", name)
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves MCP over stdio until stdin closes.
func Run(store journal.Store, cfg *config.Config, logger *slog.Logger, version string) error {
	s := NewServer(store, cfg, logger, version)
	logger.Info("mcp server started", "transport", "stdio", "version", version)
	return server.ServeStdio(s)
}
