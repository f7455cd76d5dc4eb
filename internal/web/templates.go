package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/jaminalder/mu-torere/internal/app"
	"github.com/jaminalder/mu-torere/internal/domain"
)

type templates struct {
	game  *template.Template
	board *template.Template
	index *template.Template
}

// grid places the star on a 3x3 grid, ring running clockwise from the top.
var grid = [3][3]domain.Position{
	{7, 0, 1},
	{6, domain.Center, 2},
	{5, 4, 3},
}

type cellView struct {
	Pos      int
	Occupant string
	Movable  bool
}

type boardView struct {
	ID     string
	Rows   [3][3]cellView
	Status string
	Over   bool
	Moves  int
	Error  string
}

func statusText(g *domain.Game) string {
	if g.Over() {
		return "Player " + g.Winner().String() + " wins"
	}
	return "Player " + g.CurrentSide().String() + " to move"
}

// newBoardView builds the board for viewer. Only the side to move sees
// movable counters.
func newBoardView(gs app.GameState, viewer domain.Occupant, errMsg string) boardView {
	g := &gs.Game
	onTurn := viewer.IsPlayer() && viewer == g.CurrentSide()
	v := boardView{ID: gs.ID, Status: statusText(g), Over: g.Over(), Moves: g.Moves(), Error: errMsg}
	for r, row := range grid {
		for c, p := range row {
			cv := cellView{Pos: int(p), Movable: onTurn && g.IsLegalSource(p)}
			if o := g.OccupantOf(p); o != domain.Empty {
				cv.Occupant = o.String()
			}
			v.Rows[r][c] = cv
		}
	}
	return v
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Mu Torere</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.row{display:flex}
.cell button{width:4em;height:4em;margin:.3em;border-radius:50%}
.cell.A button{background:#c0392b;color:#fff}
.cell.B button{background:#2c3e50;color:#fff}
.cell.movable button{outline:4px solid #f1c40f}
.alert{color:#c0392b}
</style>
</head><body>{{template "content" .}}</body></html>`))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Mu Torere</h1><form action="/game" method="post"><button>New game</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Mu Torere</h1>
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div hx-sse="swap:board">{{.BoardHTML}}</div>
</div>`))
	board := template.Must(template.New("board").Parse(boardTemplate))
	return &templates{game: game, board: board, index: index}
}

// renderTemplate executes t, or the named template of t's set when name is
// set. Pages pass "base" so the layout wraps their content.
func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `<div id="board">
  <p class="status">{{.Status}}</p>
  {{if .Error}}<div class="alert">{{.Error}}</div>{{end}}
  {{range .Rows}}
  <div class="row">
    {{range .}}
    <form class="cell {{.Occupant}}{{if .Movable}} movable{{end}}" hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/play">
      <input type="hidden" name="pos" value="{{.Pos}}">
      <button type="submit"{{if not .Movable}} disabled{{end}}>{{.Occupant}}</button>
    </form>
    {{end}}
  </div>
  {{end}}
  <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/reset">
    <button type="submit">new game</button>
  </form>
</div>
`

const playerCookie = "player_id"

// playerFromCookie returns the caller's player id without minting one.
func playerFromCookie(r *http.Request) string {
	if c, err := r.Cookie(playerCookie); err == nil {
		return c.Value
	}
	return ""
}

// ensurePlayerCookie returns the caller's player id, minting one if needed.
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if v := playerFromCookie(r); v != "" {
		return v
	}
	v := app.NewPlayerID()
	http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return v
}
