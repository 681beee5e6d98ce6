package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/ops"
	"github.com/hpungsan/thoughts/internal/playback"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    journal.Store
	cfg      *config.Config
	renderer *Renderer
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// HandleList handles GET /notes: notes newest first, optionally filtered by q.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	result, err := ops.ListNotes(r.Context(), h.store, ops.ListNotesInput{
		Query:  query,
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Notes",
			Version: h.renderer.version,
			Nav:     "notes",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Query:      query,
	})
}

// HandleDetail handles GET /notes/{id}: the note text and its player.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	n, err := ops.FetchNote(r.Context(), h.store, ops.FetchNoteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, n)
		return
	}
	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   n.Title,
			Version: h.renderer.version,
			Nav:     "notes",
		},
		Note:         n,
		RenderedHTML: renderMarkdown(n.Content),
		Speeds:       playback.Speeds,
		Speed:        h.cfg.DefaultSpeed,
	})
}

// HandleFrames handles GET /notes/{id}/frames: every replay frame with its
// delay as JSON. A negative id replays a provisional session.
func (h *Handlers) HandleFrames(w http.ResponseWriter, r *http.Request) {
	input, err := h.playbackInput(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	out, err := ops.Playback(r.Context(), h.store, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleDiscard handles POST /notes/{id}/discard: delete the journal.
func (h *Handlers) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	result, err := ops.Discard(r.Context(), h.store, ops.DiscardInput{SessionID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.logger.Info("journal discarded", "session_id", id, "removed", result.Removed)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	if id > 0 {
		http.Redirect(w, r, fmt.Sprintf("/notes/%d", id), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/sessions", http.StatusSeeOther)
}

// HandleSessions handles GET /sessions: provisional sessions awaiting recovery.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListSessions(r.Context(), h.store, ops.ListSessionsInput{
		ProvisionalOnly: !parseBoolParam(r, "all"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, "sessions", SessionsPageData{
		PageData: PageData{
			Title:   "Sessions",
			Version: h.renderer.version,
			Nav:     "sessions",
		},
		Sessions: result.Sessions,
	})
}

// HandleRecover handles POST /sessions/{id}/recover: save an orphaned session
// as a note and redirect to it.
func (h *Handlers) HandleRecover(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Recover(r.Context(), h.store, ops.RecoverInput{SessionID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.logger.Info("session recovered", "session_id", id, "note_id", result.Note.ID, "moved", result.Moved)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/notes/%d", result.Note.ID), http.StatusSeeOther)
}

// playbackInput reads the id path value and the speed query parameter.
func (h *Handlers) playbackInput(r *http.Request) (ops.PlaybackInput, error) {
	id, err := parseID(r)
	if err != nil {
		return ops.PlaybackInput{}, err
	}
	speed := h.cfg.DefaultSpeed
	if s := r.URL.Query().Get("speed"); s != "" {
		speed, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return ops.PlaybackInput{}, errors.NewInvalidRequest("speed must be a number")
		}
	}
	return ops.PlaybackInput{ID: id, Speed: speed, MaxDelay: h.cfg.MaxDelay()}, nil
}

// parseID parses the {id} path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid id %q", r.PathValue("id")))
	}
	return id, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
