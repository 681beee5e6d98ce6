package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/ops"
	"github.com/hpungsan/thoughts/internal/playback"
)

const streamWriteWait = 10 * time.Second

// streamCommand is a player control sent by the browser.
type streamCommand struct {
	Action string  `json:"action"` // play, pause, toggle, restart, seek, speed
	Index  int     `json:"index,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
}

// streamMessage is sent to the browser after every state change.
type streamMessage struct {
	Type    string  `json:"type"` // frame or error
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Content string  `json:"content"`
	Cursor  int     `json:"cursor"`
	Playing bool    `json:"playing"`
	Speed   float64 `json:"speed"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
}

// HandleStream handles GET /notes/{id}/stream. The server owns the playback
// clock: it pushes each frame when its delay elapses and applies control
// messages from the client as they arrive. autoplay=1 starts playing at once.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
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
	player, err := playback.NewPlayer(out.Frames, out.Speed, input.MaxDelay)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if parseBoolParam(r, "autoplay") {
		player = player.Play()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Debug("stream opened", "session_id", input.ID, "frames", player.Len())
	streamPlayer(conn, player, h.logger)
	h.logger.Debug("stream closed", "session_id", input.ID)
}

// streamPlayer drives player until the client goes away.
func streamPlayer(conn *websocket.Conn, player playback.Player, logger *slog.Logger) {
	commands := make(chan streamCommand)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(commands)
		for {
			var c streamCommand
			if err := conn.ReadJSON(&c); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("stream read ended", "error", err)
				}
				return
			}
			select {
			case commands <- c:
			case <-done:
				return
			}
		}
	}()

	if err := sendFrame(conn, player); err != nil {
		return
	}
	for {
		var tick <-chan time.Time
		var timer *time.Timer
		if d, ok := player.NextDelay(); ok {
			timer = time.NewTimer(d)
			tick = timer.C
		}

		select {
		case c, ok := <-commands:
			if timer != nil {
				timer.Stop()
			}
			if !ok {
				return
			}
			next, err := c.apply(player)
			if err != nil {
				if sendError(conn, err) != nil {
					return
				}
				continue
			}
			player = next
		case <-tick:
			player = player.Advance()
		}

		if err := sendFrame(conn, player); err != nil {
			return
		}
	}
}

func (c streamCommand) apply(p playback.Player) (playback.Player, error) {
	switch c.Action {
	case "play":
		return p.Play(), nil
	case "pause":
		return p.Pause(), nil
	case "toggle":
		return p.Toggle(), nil
	case "restart":
		return p.Restart(), nil
	case "seek":
		return p.Seek(c.Index), nil
	case "speed":
		return p.SetSpeed(c.Speed)
	default:
		return p, errors.NewInvalidRequest("unknown action " + c.Action)
	}
}

func sendFrame(conn *websocket.Conn, p playback.Player) error {
	f := p.Frame()
	return write(conn, streamMessage{
		Type:    "frame",
		Index:   p.Index(),
		Total:   p.Len(),
		Content: f.Content,
		Cursor:  f.CursorPosition,
		Playing: p.Playing(),
		Speed:   p.Speed(),
	})
}

func sendError(conn *websocket.Conn, err error) error {
	e := errors.As(err)
	return write(conn, streamMessage{Type: "error", Code: string(e.Code), Message: e.Message})
}

func write(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}
