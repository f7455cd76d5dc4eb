// Package term is a line oriented terminal front end: it prints the board
// and reads one command per line.
package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jaminalder/mu-torere/internal/bot"
	"github.com/jaminalder/mu-torere/internal/domain"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

// grid matches the web layout: ring clockwise from the top, center in the
// middle.
var grid = [3][3]domain.Position{
	{7, 0, 1},
	{6, domain.Center, 2},
	{5, 4, 3},
}

const helpText = `commands:
  0-8      move the counter on that position (8 is the center)
  n, new   start a new game
  h, help  show this help
  q, quit  leave
`

// UI drives one game from a reader and a writer.
type UI struct {
	in      *bufio.Scanner
	w       io.Writer
	out     *termenv.Output
	profile *termenv.Profile
	game    *domain.Game
	bot     *bot.Random
	botSide domain.Occupant
	log     zerolog.Logger
}

// Option configures a UI.
type Option func(*UI)

// WithBot lets a random player take side.
func WithBot(side domain.Occupant, seed uint64) Option {
	return func(u *UI) {
		u.bot = bot.NewRandom(seed)
		u.botSide = side
	}
}

// WithProfile forces a colour profile instead of detecting it from out.
func WithProfile(p termenv.Profile) Option { return func(u *UI) { u.profile = &p } }

// WithLogger sets the logger for played moves.
func WithLogger(l zerolog.Logger) Option { return func(u *UI) { u.log = l } }

// New returns a UI reading commands from in and printing to out.
func New(in io.Reader, out io.Writer, g *domain.Game, opts ...Option) *UI {
	u := &UI{in: bufio.NewScanner(in), w: out, game: g, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(u)
	}
	if u.profile != nil {
		u.out = termenv.NewOutput(out, termenv.WithProfile(*u.profile))
	} else {
		u.out = termenv.NewOutput(out)
	}
	return u
}

// Run plays until the input ends or the user quits. ctx is checked between
// commands.
func (u *UI) Run(ctx context.Context) error {
	u.render()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if u.bot != nil && !u.game.Over() && u.game.CurrentSide() == u.botSide {
			u.playBot()
			continue
		}
		fmt.Fprint(u.w, "> ")
		if !u.in.Scan() {
			return u.in.Err()
		}
		cmd := strings.ToLower(strings.TrimSpace(u.in.Text()))
		switch cmd {
		case "":
		case "q", "quit", "exit":
			return nil
		case "n", "new":
			u.game.Reset()
			u.log.Debug().Msg("new game")
			u.render()
		case "h", "help", "?":
			fmt.Fprint(u.w, helpText)
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil {
				fmt.Fprintf(u.w, "unknown command %q, type h for help\n", cmd)
				continue
			}
			u.play(domain.Position(n))
		}
	}
}

func (u *UI) play(p domain.Position) {
	side := u.game.CurrentSide()
	if err := u.game.PlayTurn(p); err != nil {
		switch {
		case errors.Is(err, domain.ErrGameOver):
			fmt.Fprintln(u.w, "game is over, type n for a new game")
		default:
			fmt.Fprintf(u.w, "%v\n", err)
		}
		return
	}
	u.log.Debug().Str("side", side.String()).Int("from", int(p)).Msg("move played")
	u.render()
}

func (u *UI) playBot() {
	p, ok := u.bot.Choose(u.game)
	if !ok {
		return
	}
	fmt.Fprintf(u.w, "%s plays %s\n", u.paint(u.botSide), p)
	u.play(p)
}

// paint colours a side's letter; Empty stays plain.
func (u *UI) paint(o domain.Occupant) string {
	s := u.out.String(o.String())
	switch o {
	case domain.PlayerA:
		s = s.Foreground(u.out.Color("1")).Bold()
	case domain.PlayerB:
		s = s.Foreground(u.out.Color("4")).Bold()
	default:
		s = s.Faint()
	}
	return s.String()
}

func (u *UI) cell(p domain.Position) string {
	mark := " "
	if u.game.IsLegalSource(p) {
		mark = "*"
	}
	return fmt.Sprintf("%d %s%s", int(p), u.paint(u.game.OccupantOf(p)), mark)
}

func (u *UI) row(r int) string {
	return fmt.Sprintf("  %s --- %s --- %s\n", u.cell(grid[r][0]), u.cell(grid[r][1]), u.cell(grid[r][2]))
}

func (u *UI) render() {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(u.row(0))
	b.WriteString("    |    \\    |    /    |\n")
	b.WriteString(u.row(1))
	b.WriteString("    |    /    |    \\    |\n")
	b.WriteString(u.row(2))
	b.WriteString("\n")
	b.WriteString(u.status())
	b.WriteString("\n")
	fmt.Fprint(u.w, b.String())
}

func (u *UI) status() string {
	g := u.game
	if g.Over() {
		return fmt.Sprintf("Player %s wins, type n for a new game", u.paint(g.Winner()))
	}
	legal := make([]string, 0, 3)
	for _, p := range g.LegalSources() {
		legal = append(legal, p.String())
	}
	return fmt.Sprintf("Player %s to move (%s)", u.paint(g.CurrentSide()), strings.Join(legal, ", "))
}
