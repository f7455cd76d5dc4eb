package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jaminalder/mu-torere/internal/app"
	"github.com/jaminalder/mu-torere/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...app.Option) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService(opts...)
	h := NewServer(s)
	return s, h
}

func postForm(h http.Handler, path, playerID string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if playerID != "" {
		req.AddCookie(&http.Cookie{Name: "player_id", Value: playerID})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
	if !strings.Contains(body, "htmx.org") {
		t.Fatalf("index should be wrapped in the base layout; got body: %q", body)
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("POST", "/game", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
}

func TestCreateFailsOnBadConfig(t *testing.T) {
	_, h := newTestServer(t, app.WithGameConfig(domain.Config{Start: domain.PlayerA}))
	req := httptest.NewRequest("POST", "/game", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
	svc, h := newTestServer(t)
	// Create a game via service to know ID
	gs, _ := svc.CreateGame()

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	// Cookie set
	cookies := rr.Result().Cookies()
	var playerID string
	for _, c := range cookies {
		if c.Name == "player_id" {
			playerID = c.Value
			break
		}
	}
	if playerID == "" {
		t.Fatalf("expected player_id cookie to be set")
	}
	// Auto-claimed seat
	latest, ok := svc.Get(gs.ID)
	if !ok || (latest.A != playerID && latest.B != playerID) {
		t.Fatalf("expected auto-claim A or B; have A=%q B=%q pid=%q", latest.A, latest.B, playerID)
	}
	// SSE wiring present
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if !strings.Contains(body, "Player A to move") {
		t.Fatalf("expected status line in page; got body: %q", body)
	}
}

func TestGamePageUnknownID(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/game/nope", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	// First GET to auto-claim A for p1
	req1 := httptest.NewRequest("GET", "/game/"+gs.ID, nil)
	rr1 := httptest.NewRecorder()
	h.ServeHTTP(rr1, req1)

	rr := postForm(h, "/game/"+gs.ID+"/join", "p2", url.Values{})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.B != "p2" && latest.A != "p2" { // allow if A was free
		t.Fatalf("expected seat for p2, got A=%q B=%q", latest.A, latest.B)
	}
}

func TestBoardFragmentMarksMovableCounters(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	rr := postForm(h, "/game/"+gs.ID+"/join", "p1", url.Values{})
	body := rr.Body.String()
	// A may move 0 and 3 on the opening board
	require.Equal(t, 2, strings.Count(body, "movable"), body)
	require.Contains(t, body, `class="cell A movable"`)
	require.Equal(t, 9, strings.Count(body, `name="pos"`))
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	// Assign A and B
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")

	rr := postForm(h, "/game/"+gs.ID+"/play", "p1", url.Values{"pos": {"0"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Player B to move") {
		t.Fatalf("expected B to move, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves() != 1 {
		t.Fatalf("expected move applied, moves=%d", latest.Game.Moves())
	}
}

func TestPlayEndpointShowsErrors(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")

	cases := []struct {
		player, pos, want string
	}{
		{"p2", "7", "Not your turn"},
		{"p3", "0", "You are a spectator"},
		{"p1", "1", "Illegal move"},
		{"p1", "x", "Illegal move"},
	}
	for _, c := range cases {
		rr := postForm(h, "/game/"+gs.ID+"/play", c.player, url.Values{"pos": {c.pos}})
		require.Equal(t, http.StatusOK, rr.Code)
		require.Contains(t, rr.Body.String(), c.want, "player %s pos %s", c.player, c.pos)
	}
	latest, _ := svc.Get(gs.ID)
	require.Equal(t, 0, latest.Game.Moves())

	rr := postForm(h, "/game/missing/play", "p1", url.Values{"pos": {"0"}})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResetEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")
	_, err := svc.Play(gs.ID, "p1", 0)
	require.NoError(t, err)

	rr := postForm(h, "/game/"+gs.ID+"/reset", "p3", nil)
	require.Contains(t, rr.Body.String(), "You are a spectator")

	rr = postForm(h, "/game/"+gs.ID+"/reset", "p2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Player A to move")
	latest, _ := svc.Get(gs.ID)
	require.Equal(t, 0, latest.Game.Moves())
}

func TestStateEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	req := httptest.NewRequest("GET", "/game/"+gs.ID+"/state", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got stateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, stateResponse{
		ID:     gs.ID,
		Turn:   "A",
		Status: "in_progress",
		Board:  "AAAABBBB.",
		Legal:  []int{0, 3},
	}, got)
}

func TestStateEndpointAfterWin(t *testing.T) {
	l, _ := domain.ParseLayout(".BAAAABBB")
	svc, h := newTestServer(t, app.WithGameConfig(domain.Config{Layout: l, Start: domain.PlayerB}))
	gs, _ := svc.CreateGame()
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")
	rr := postForm(h, "/game/"+gs.ID+"/play", "p2", url.Values{"pos": {"7"}})
	require.Contains(t, rr.Body.String(), "Player B wins")

	req := httptest.NewRequest("GET", "/game/"+gs.ID+"/state", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var got stateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "B", got.Winner)
	require.Equal(t, "finished", got.Status)
	require.Empty(t, got.Legal)
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	// create a game via POST
	reqCreate := httptest.NewRequest("POST", "/game", nil)
	rrCreate := httptest.NewRecorder()
	h.ServeHTTP(rrCreate, reqCreate)
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	// Request SSE
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		io.Copy(io.Discard, rr.Result().Body)
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}

func TestWriteEventSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	writeEvent(&buf, "board", []byte("<div>\n  <p>x</p>\n</div>\n"))
	require.Equal(t, "event: board\ndata: <div>\ndata:   <p>x</p>\ndata: </div>\n\n", buf.String())
}

func TestAccessLog(t *testing.T) {
	var logs bytes.Buffer
	s := app.NewService()
	h := NewServer(s, WithLogger(zerolog.New(&logs)))
	req := httptest.NewRequest("GET", "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	require.Equal(t, "request", line["message"])
	require.Equal(t, "/", line["path"])
	require.EqualValues(t, 200, line["status"])
	require.NotEmpty(t, line["req_id"])
}

func TestEventsStreamStartsWithCurrentBoard(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")
	_, err := svc.Play(gs.ID, "p1", 0)
	require.NoError(t, err)

	// A reconnecting client gets the board as it is now, not as of its last
	// event. The request context is already done so the stream ends after
	// the first event.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/game/"+gs.ID+"/events", nil).WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")
	req.AddCookie(&http.Cookie{Name: "player_id", Value: "p2"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.True(t, strings.HasPrefix(body, "event: board\ndata: "), body)
	require.Contains(t, body, "Player B to move")
	require.Contains(t, body, `class="cell B movable"`)
}

func TestOnlySideToMoveSeesMovableCounters(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	svc.Join(gs.ID, "p1") // A, on turn

	rr := postForm(h, "/game/"+gs.ID+"/join", "p2", url.Values{}) // B
	require.NotContains(t, rr.Body.String(), ` movable"`)
	rr = postForm(h, "/game/"+gs.ID+"/join", "p3", url.Values{}) // spectator
	require.NotContains(t, rr.Body.String(), ` movable"`)
	require.Equal(t, 9, strings.Count(rr.Body.String(), " disabled"))

	// After A moves the roles flip.
	rr = postForm(h, "/game/"+gs.ID+"/play", "p1", url.Values{"pos": {"0"}})
	require.NotContains(t, rr.Body.String(), ` movable"`)
	rr = postForm(h, "/game/"+gs.ID+"/join", "p2", url.Values{})
	require.Equal(t, 1, strings.Count(rr.Body.String(), ` movable"`))
}

func TestGamePageRendersForViewerSeat(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")

	get := func(pid string) string {
		req := httptest.NewRequest("GET", "/game/"+gs.ID, nil)
		req.AddCookie(&http.Cookie{Name: "player_id", Value: pid})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		return rr.Body.String()
	}
	require.Equal(t, 2, strings.Count(get("p1"), ` movable"`))
	require.NotContains(t, get("p2"), ` movable"`)
	require.NotContains(t, get("p3"), ` movable"`)
}
