package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/db"
	"github.com/hpungsan/thoughts/internal/edit"
	"github.com/hpungsan/thoughts/internal/journal"
)

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	store := journal.NewSQLiteStore(database)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	cfg.BaseDir = tmpDir

	h, err := newHandlers(store, cfg, nil, "test")
	if err != nil {
		t.Fatalf("newHandlers: %v", err)
	}
	return h
}

// journalTexts appends the edits that turn each text into the next under session.
func journalTexts(t *testing.T, h *Handlers, session int64, texts ...string) {
	t.Helper()
	prev := ""
	for i, next := range texts {
		op, ok := edit.Diff(prev, next, 0)
		prev = next
		if !ok {
			continue
		}
		op.SessionID = session
		op.TimestampMs = int64(5000 + i*40)
		if _, err := h.store.Append(context.Background(), op); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

// seedNote records texts and commits the last one as a note.
func seedNote(t *testing.T, h *Handlers, texts ...string) int64 {
	t.Helper()
	ctx := context.Background()
	journalTexts(t, h, -1, texts...)
	n, err := h.store.CreateNote(ctx, texts[len(texts)-1])
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if _, err := h.store.ReassignIdentity(ctx, -1, n.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	return n.ID
}

// serve routes a request through the real mux.
func serve(t *testing.T, h *Handlers, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	newMux(t, h).ServeHTTP(rec, req)
	return rec
}

func newMux(t *testing.T, h *Handlers) http.Handler {
	t.Helper()
	srv, err := NewServer(h.store, h.cfg, nil, "test")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv.Handler
}

func TestHandleList(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "g", "groceries\nmilk")
	if _, err := h.store.CreateNote(context.Background(), "<script>alert(1)</script>"); err != nil {
		t.Fatal(err)
	}

	rec := serve(t, h, httptest.NewRequest("GET", "/notes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "groceries") {
		t.Error("expected note title in response")
	}
	if strings.Contains(body, "<script>alert") {
		t.Error("note text must be escaped")
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}

	rec = serve(t, h, httptest.NewRequest("GET", "/notes?q=milk", nil))
	if strings.Contains(rec.Body.String(), "alert") {
		t.Error("filtered list should not contain the other note")
	}
}

func TestHandleList_JSON(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "one")

	req := httptest.NewRequest("GET", "/notes", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(t, h, req)

	var out struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0]["title"] != "one" {
		t.Errorf("items = %v", out.Items)
	}
}

func TestRootRedirects(t *testing.T) {
	h := setupTest(t)
	rec := serve(t, h, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/notes" {
		t.Errorf("status = %d, location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHandleDetail(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "#", "# Title", "# Title\n\n*soft*")

	rec := serve(t, h, httptest.NewRequest("GET", "/notes/"+strconv.FormatInt(id, 10), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Title</h1>") {
		t.Error("expected rendered markdown heading")
	}
	if !strings.Contains(body, "<em>soft</em>") {
		t.Error("expected rendered emphasis")
	}
	if !strings.Contains(body, `data-stream="/notes/`+strconv.FormatInt(id, 10)+`/stream"`) {
		t.Error("expected player for a note with history")
	}
}

func TestHandleDetail_Errors(t *testing.T) {
	h := setupTest(t)

	tests := []struct {
		path string
		want int
	}{
		{"/notes/999", http.StatusNotFound},
		{"/notes/abc", http.StatusBadRequest},
		{"/notes/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := serve(t, h, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}

	req := httptest.NewRequest("GET", "/notes/999", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(t, h, req)
	if !strings.Contains(rec.Body.String(), `"code":"NOT_FOUND"`) {
		t.Errorf("json error body = %s", rec.Body.String())
	}
}

func TestHandleFrames(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "a", "ab", "abc")

	rec := serve(t, h, httptest.NewRequest("GET", "/notes/"+strconv.FormatInt(id, 10)+"/frames?speed=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Frames   []map[string]any `json:"frames"`
		DelaysMs []int64          `json:"delays_ms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Frames) != 3 || out.Frames[2]["content"] != "abc" {
		t.Errorf("frames = %v", out.Frames)
	}
	if len(out.DelaysMs) != 2 || out.DelaysMs[0] != 20 {
		t.Errorf("delays_ms = %v, want [20 20]", out.DelaysMs)
	}

	rec = serve(t, h, httptest.NewRequest("GET", "/notes/"+strconv.FormatInt(id, 10)+"/frames?speed=fast", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad speed status = %d, want 400", rec.Code)
	}
	rec = serve(t, h, httptest.NewRequest("GET", "/notes/"+strconv.FormatInt(id, 10)+"/frames?speed=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative speed status = %d, want 400", rec.Code)
	}
}

func TestHandleDiscard(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "x", "xy")
	path := "/notes/" + strconv.FormatInt(id, 10)

	req := httptest.NewRequest("POST", path+"/discard", nil)
	rec := serve(t, h, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing confirm status = %d, want 400", rec.Code)
	}

	form := url.Values{"confirm": {"true"}}
	req = httptest.NewRequest("POST", path+"/discard", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serve(t, h, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != path {
		t.Fatalf("status = %d, location = %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = serve(t, h, httptest.NewRequest("GET", path+"/frames", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("frames after discard status = %d, want 404", rec.Code)
	}
	rec = serve(t, h, httptest.NewRequest("GET", path, nil))
	if !strings.Contains(rec.Body.String(), "No typing history") {
		t.Error("detail page should say the history is gone")
	}
}

func TestSessionsAndRecover(t *testing.T) {
	h := setupTest(t)
	journalTexts(t, h, -42, "l", "lo", "lost")

	rec := serve(t, h, httptest.NewRequest("GET", "/sessions", nil))
	if !strings.Contains(rec.Body.String(), "-42") {
		t.Fatal("expected provisional session on sessions page")
	}

	rec = serve(t, h, httptest.NewRequest("POST", "/sessions/-42/recover", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("recover status = %d: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/notes/") {
		t.Fatalf("location = %q", location)
	}

	rec = serve(t, h, httptest.NewRequest("GET", location, nil))
	if !strings.Contains(rec.Body.String(), "lost") {
		t.Error("recovered note should contain the replayed text")
	}

	rec = serve(t, h, httptest.NewRequest("GET", "/sessions", nil))
	if !strings.Contains(rec.Body.String(), "Nothing to recover") {
		t.Error("sessions page should be empty after recovery")
	}
}

func TestHandleStream(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "h", "hi", "hi!")

	srv := httptest.NewServer(newMux(t, h))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notes/" + strconv.FormatInt(id, 10) + "/stream?speed=4"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg streamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "frame" || msg.Index != 0 || msg.Playing || msg.Total != 3 || msg.Content != "h" {
		t.Fatalf("first message = %+v, want paused frame 0", msg)
	}

	if err := conn.WriteJSON(streamCommand{Action: "play"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var contents []string
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		contents = append(contents, msg.Content)
		if !msg.Playing {
			break
		}
	}
	if got := contents[len(contents)-1]; got != "hi!" {
		t.Errorf("final frame = %q, want hi!", got)
	}
	if msg.Index != 2 {
		t.Errorf("final index = %d, want 2", msg.Index)
	}

	if err := conn.WriteJSON(streamCommand{Action: "speed", Speed: -1}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || msg.Code != "INVALID_SPEED" {
		t.Errorf("message = %+v, want INVALID_SPEED error", msg)
	}

	if err := conn.WriteJSON(streamCommand{Action: "seek", Index: 1}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Index != 1 || msg.Content != "hi" {
		t.Errorf("after seek = %+v", msg)
	}
}

func TestHandleStream_NoHistory(t *testing.T) {
	h := setupTest(t)
	n, err := h.store.CreateNote(context.Background(), "plain")
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(newMux(t, h))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notes/" + strconv.FormatInt(n.ID, 10) + "/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %v, want 404", resp)
	}
}

func TestFormatChars(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -1500: "-1,500"}
	for in, want := range tests {
		if got := formatChars(in); got != want {
			t.Errorf("formatChars(%d) = %q, want %q", in, got, want)
		}
	}
}
