package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store  journal.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store journal.Store, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{store: store, cfg: cfg, logger: logger}
}

// NoteListRequest represents the arguments for note_list.
type NoteListRequest struct {
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// NoteFetchRequest represents the arguments for note_fetch.
type NoteFetchRequest struct {
	ID int64 `json:"id"`
}

// SessionRequest represents the arguments of the tools addressing one session.
type SessionRequest struct {
	SessionID sessionArg `json:"session_id"`
}

// SessionsRequest represents the arguments for journal_sessions.
type SessionsRequest struct {
	ProvisionalOnly bool `json:"provisional_only,omitempty"`
}

// PlaybackRequest represents the arguments for journal_playback.
type PlaybackRequest struct {
	ID    sessionArg `json:"id"`
	Speed float64    `json:"speed,omitempty"`
}

// ExportRequest represents the arguments for note_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for note_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// HandleNoteList handles the note_list tool call.
func (h *Handlers) HandleNoteList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result(ops.ListNotes(ctx, h.store, ops.ListNotesInput{
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	}))
}

// HandleNoteFetch handles the note_fetch tool call.
func (h *Handlers) HandleNoteFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result(ops.FetchNote(ctx, h.store, ops.FetchNoteInput{ID: input.ID}))
}

// HandleJournalList handles the journal_list tool call.
func (h *Handlers) HandleJournalList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result(ops.ListJournal(ctx, h.store, ops.ListJournalInput{SessionID: int64(input.SessionID)}))
}

// HandleSessions handles the journal_sessions tool call.
func (h *Handlers) HandleSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result(ops.ListSessions(ctx, h.store, ops.ListSessionsInput{ProvisionalOnly: input.ProvisionalOnly}))
}

// HandlePlayback handles the journal_playback tool call.
func (h *Handlers) HandlePlayback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlaybackRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	speed := input.Speed
	if speed == 0 {
		speed = h.cfg.DefaultSpeed
	}
	return h.result(ops.Playback(ctx, h.store, ops.PlaybackInput{
		ID:       int64(input.ID),
		Speed:    speed,
		MaxDelay: h.cfg.MaxDelay(),
	}))
}

// HandleDiscard handles the journal_discard tool call.
func (h *Handlers) HandleDiscard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	out, err := ops.Discard(ctx, h.store, ops.DiscardInput{SessionID: int64(input.SessionID)})
	if err == nil {
		h.logger.Info("journal discarded", "session_id", out.SessionID, "removed", out.Removed)
	}
	return h.result(out, err)
}

// HandleRecover handles the journal_recover tool call.
func (h *Handlers) HandleRecover(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	out, err := ops.Recover(ctx, h.store, ops.RecoverInput{SessionID: int64(input.SessionID)})
	if err == nil {
		h.logger.Info("session recovered", "session_id", int64(input.SessionID), "note_id", out.Note.ID, "moved", out.Moved)
	}
	return h.result(out, err)
}

// HandleExport handles the note_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result(ops.Export(ctx, h.store, h.cfg, ops.ExportInput{Path: input.Path}))
}

// HandleImport handles the note_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result(ops.Import(ctx, h.store, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	}))
}

// result converts an ops return pair into a tool result, logging internal failures.
func (h *Handlers) result(data any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if e := errors.As(err); e.Code == errors.ErrInternal {
			h.logger.Error("tool failed", "error", err, "details", e.Details)
		}
		return errorResult(err), nil
	}
	return successResult(data)
}

// errorResult creates an MCP error result from any error.
// Details of INTERNAL errors stay out of the payload; they may carry paths or SQL.
func errorResult(err error) *mcp.CallToolResult {
	e := errors.As(err)
	errorObj := map[string]any{
		"code":    e.Code,
		"message": e.Message,
		"status":  e.Status,
	}
	if e.Code != errors.ErrInternal && e.Details != nil {
		errorObj["details"] = e.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
