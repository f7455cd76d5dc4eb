package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/mu-torere/internal/app"
	"github.com/jaminalder/mu-torere/internal/domain"
	"github.com/rs/zerolog"
)

type handlers struct {
	svc *app.Service
	tpl *templates
	log zerolog.Logger
}

func (h *handlers) renderBoard(gs app.GameState, viewer domain.Occupant, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, viewer, errMsg))
}

func writeHTML(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// errMessage turns service and rule errors into the text shown on the board.
func errMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, domain.ErrIllegalMove):
		return "Illegal move"
	default:
		return "Invalid move"
	}
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.index, "base", nil))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame()
	if err != nil {
		h.log.Error().Err(err).Msg("create game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	side, gs, err := h.svc.Join(id, pid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID        string
		BoardHTML template.HTML
	}{ID: gs.ID, BoardHTML: template.HTML(h.renderBoard(*gs, side, ""))}
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.game, "base", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	side, gs, err := h.svc.Join(id, pid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusOK, h.renderBoard(*gs, side, ""))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	pos, convErr := strconv.Atoi(r.Form.Get("pos"))
	var (
		gs  *app.GameState
		err error
	)
	if convErr != nil {
		err = domain.ErrIllegalMove
	} else {
		gs, err = h.svc.Play(id, pid, domain.Position(pos))
	}
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	var errMsg string
	if err != nil {
		errMsg = errMessage(err)
		g, ok := h.svc.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		gs = g
	}
	writeHTML(w, http.StatusOK, h.renderBoard(*gs, gs.Seat(pid), errMsg))
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.Reset(id, pid)
	switch {
	case errors.Is(err, app.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		g, ok := h.svc.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeHTML(w, http.StatusOK, h.renderBoard(*g, g.Seat(pid), errMessage(err)))
		return
	}
	writeHTML(w, http.StatusOK, h.renderBoard(*gs, gs.Seat(pid), ""))
}

type stateResponse struct {
	ID     string `json:"id"`
	Turn   string `json:"turn"`
	Winner string `json:"winner,omitempty"`
	Status string `json:"status"`
	Moves  int    `json:"moves"`
	Board  string `json:"board"`
	Legal  []int  `json:"legal"`
}

func newStateResponse(gs *app.GameState) stateResponse {
	g := &gs.Game
	resp := stateResponse{
		ID:     gs.ID,
		Turn:   g.CurrentSide().String(),
		Status: g.Status().String(),
		Moves:  g.Moves(),
		Board:  g.Board().Layout().String(),
		Legal:  []int{},
	}
	if g.Over() {
		resp.Winner = g.Winner().String()
	}
	for _, p := range g.LegalSources() {
		resp.Legal = append(resp.Legal, int(p))
	}
	return resp
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newStateResponse(gs)); err != nil {
		h.log.Warn().Err(err).Msg("encode state")
	}
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	pid := playerFromCookie(r)
	ch, unsub, err := h.svc.Subscribe(ctx, id, pid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	// Subscribed first, so no update after this snapshot is missed.
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	w.WriteHeader(http.StatusOK)
	writeEvent(w, "board", h.renderBoard(*gs, gs.Seat(pid), ""))
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = io.WriteString(w, "event: "+name+"\n")
	for _, line := range strings.Split(strings.TrimRight(string(payload), "\n"), "\n") {
		_, _ = io.WriteString(w, "data: "+line+"\n")
	}
	_, _ = io.WriteString(w, "\n")
}
