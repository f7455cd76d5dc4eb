package domain

import "fmt"

// Status is the state of the turn engine.
type Status uint8

const (
	InProgress Status = iota
	Finished
)

func (s Status) String() string {
	if s == Finished {
		return "finished"
	}
	return "in_progress"
}

// Move records one played turn.
type Move struct {
	Side Occupant
	From Position
	To   Position
}

// Config is the starting position of a game.
type Config struct {
	Layout Layout
	Start  Occupant
}

// DefaultConfig is the block layout with PlayerA to move.
func DefaultConfig() Config {
	return Config{Layout: DefaultLayout(), Start: PlayerA}
}

// Validate checks the layout and the starting side.
func (c Config) Validate() error {
	if !c.Start.IsPlayer() {
		return fmt.Errorf("%w: starting side %d", ErrInvalidSide, c.Start)
	}
	return c.Layout.Validate()
}

// Game holds the current state of a Mu Torere match. Copies share the
// history backing array, so only one copy should keep playing.
type Game struct {
	cfg     Config
	board   Board
	turn    Occupant
	winner  Occupant
	status  Status
	history []Move
}

// New returns a game on the default layout with start to move. It panics if
// start is not a player.
func New(start Occupant) *Game {
	g, err := NewWithConfig(Config{Layout: DefaultLayout(), Start: start})
	if err != nil {
		panic(err)
	}
	return g
}

// NewWithConfig returns a game from a caller supplied layout.
func NewWithConfig(cfg Config) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Game{cfg: cfg}
	g.Reset()
	return g, nil
}

// Reset discards the board and restores the configured start.
func (g *Game) Reset() {
	b, err := NewBoard(g.cfg.Layout)
	if err != nil {
		// cfg was validated on construction
		panic(err)
	}
	g.board = b
	g.turn = g.cfg.Start
	g.winner = NoWinner
	g.status = InProgress
	g.history = nil
	g.settle()
}

// PlayTurn moves the current side's counter from the given position into
// the empty cell and hands the turn over.
func (g *Game) PlayTurn(from Position) error {
	if g.status == Finished {
		return ErrGameOver
	}
	to := g.board.EmptyPosition()
	if err := g.board.ApplyMove(from, g.turn); err != nil {
		return err
	}
	g.history = append(g.history, Move{Side: g.turn, From: from, To: to})
	g.turn = g.turn.Opponent()
	g.settle()
	return nil
}

// settle finishes the game when the side to move is stuck.
func (g *Game) settle() {
	if len(g.board.LegalSources(g.turn)) == 0 {
		g.winner = g.turn.Opponent()
		g.status = Finished
	}
}

// OccupantOf returns who sits on p.
func (g *Game) OccupantOf(p Position) Occupant { return g.board.Occupant(p) }

// IsLegalSource reports whether the side to move may play p.
func (g *Game) IsLegalSource(p Position) bool {
	if g.status == Finished {
		return false
	}
	return g.board.IsLegalSource(p, g.turn)
}

// LegalSources lists the positions the side to move may play, empty once the
// game is over.
func (g *Game) LegalSources() []Position {
	if g.status == Finished {
		return nil
	}
	return g.board.LegalSources(g.turn)
}

// CurrentSide is the side to move. After the game ends it is the side that
// was left without a move.
func (g *Game) CurrentSide() Occupant { return g.turn }

func (g *Game) Winner() Occupant { return g.winner }
func (g *Game) Status() Status { return g.status }
func (g *Game) Over() bool { return g.status == Finished }
func (g *Game) Moves() int { return len(g.history) }
func (g *Game) History() []Move { return append([]Move(nil), g.history...) }
func (g *Game) Board() Board { return g.board }
func (g *Game) StartingSide() Occupant { return g.cfg.Start }
func (g *Game) InitialLayout() Layout { return g.cfg.Layout }
func (g *Game) EmptyPosition() Position { return g.board.EmptyPosition() }
