package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Occupant is what sits on a position: nothing, or one of the two players.
type Occupant uint8

const (
	Empty Occupant = iota
	PlayerA
	PlayerB
)

// NoWinner is reported by Game.Winner while the game is in progress.
const NoWinner = Empty

// Opponent returns the other player. Empty has no opponent.
func (o Occupant) Opponent() Occupant {
	switch o {
	case PlayerA:
		return PlayerB
	case PlayerB:
		return PlayerA
	default:
		return Empty
	}
}

// IsPlayer reports whether o is PlayerA or PlayerB.
func (o Occupant) IsPlayer() bool { return o == PlayerA || o == PlayerB }

func (o Occupant) String() string {
	switch o {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	default:
		return "."
	}
}

// ParseOccupant is the inverse of Occupant.String. Lower case is accepted.
func ParseOccupant(s string) (Occupant, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return PlayerA, nil
	case "B":
		return PlayerB, nil
	case ".":
		return Empty, nil
	}
	return Empty, fmt.Errorf("unknown occupant %q", s)
}

// Position identifies one of the nine board cells. 0..7 run round the outer
// ring in cyclic order; Center is the middle of the star.
type Position int

const (
	Center       Position = 8
	NumOuter              = 8
	NumPositions          = 9
)

// Valid reports whether p names a board cell.
func (p Position) Valid() bool { return p >= 0 && p < NumPositions }

// IsOuter reports whether p is on the ring.
func (p Position) IsOuter() bool { return p >= 0 && p < NumOuter }

func (p Position) String() string {
	if p == Center {
		return "center"
	}
	return fmt.Sprintf("%d", int(p))
}

// Errors returned by board and game operations.
var (
	ErrInvalidLayout = errors.New("invalid layout")
	ErrIllegalMove   = errors.New("illegal move")
	ErrGameOver      = errors.New("game over")
	ErrInvalidSide   = errors.New("invalid side")
)

var adjacency = buildAdjacency()

func buildAdjacency() [NumPositions][]Position {
	var adj [NumPositions][]Position
	for i := 0; i < NumOuter; i++ {
		prev := Position((i + NumOuter - 1) % NumOuter)
		next := Position((i + 1) % NumOuter)
		adj[i] = []Position{prev, next, Center}
		adj[Center] = append(adj[Center], Position(i))
	}
	return adj
}

// ringNeighbors returns the two outer positions next to p on the ring.
func ringNeighbors(p Position) [2]Position {
	return [2]Position{
		Position((int(p) + NumOuter - 1) % NumOuter),
		Position((int(p) + 1) % NumOuter),
	}
}

// Neighbors returns the positions one step away from p. The result is a copy
// of the static graph; nil for an invalid position.
func Neighbors(p Position) []Position {
	if !p.Valid() {
		return nil
	}
	return append([]Position(nil), adjacency[p]...)
}

// Layout assigns an occupant to every position, indexed by Position.
type Layout [NumPositions]Occupant

// DefaultLayout puts PlayerA on outer 0..3, PlayerB on 4..7 and leaves the
// center empty.
func DefaultLayout() Layout {
	var l Layout
	for i := 0; i < NumOuter; i++ {
		if i < NumOuter/2 {
			l[i] = PlayerA
		} else {
			l[i] = PlayerB
		}
	}
	l[Center] = Empty
	return l
}

// AlternatingLayout alternates the players round the ring, center empty.
func AlternatingLayout() Layout {
	var l Layout
	for i := 0; i < NumOuter; i++ {
		if i%2 == 0 {
			l[i] = PlayerA
		} else {
			l[i] = PlayerB
		}
	}
	l[Center] = Empty
	return l
}

// ParseLayout reads nine characters (A, B or .) in position order.
func ParseLayout(s string) (Layout, error) {
	var l Layout
	s = strings.TrimSpace(s)
	if len(s) != NumPositions {
		return l, fmt.Errorf("%w: want %d cells, got %d", ErrInvalidLayout, NumPositions, len(s))
	}
	for i := 0; i < NumPositions; i++ {
		o, err := ParseOccupant(s[i : i+1])
		if err != nil {
			return l, fmt.Errorf("%w: position %d: %v", ErrInvalidLayout, i, err)
		}
		l[i] = o
	}
	return l, l.Validate()
}

func (l Layout) String() string {
	var b strings.Builder
	for _, o := range l {
		b.WriteString(o.String())
	}
	return b.String()
}

// Validate checks for four counters per player and a single empty cell.
func (l Layout) Validate() error {
	var counts [3]int
	for i, o := range l {
		if o > PlayerB {
			return fmt.Errorf("%w: position %d has unknown occupant %d", ErrInvalidLayout, i, o)
		}
		counts[o]++
	}
	if counts[Empty] != 1 || counts[PlayerA] != 4 || counts[PlayerB] != 4 {
		return fmt.Errorf("%w: need 4 A, 4 B and 1 empty, got %d A, %d B, %d empty",
			ErrInvalidLayout, counts[PlayerA], counts[PlayerB], counts[Empty])
	}
	return nil
}

// Board holds the occupants of the nine positions. It is a value type;
// copying a Board copies its state.
type Board struct {
	cells [NumPositions]Occupant
	empty Position
}

// NewBoard builds a board from a validated layout.
func NewBoard(l Layout) (Board, error) {
	if err := l.Validate(); err != nil {
		return Board{}, err
	}
	b := Board{cells: l}
	for i, o := range l {
		if o == Empty {
			b.empty = Position(i)
		}
	}
	return b, nil
}

// Occupant returns who sits on p, Empty for an invalid position.
func (b Board) Occupant(p Position) Occupant {
	if !p.Valid() {
		return Empty
	}
	return b.cells[p]
}

// EmptyPosition returns the single empty cell.
func (b Board) EmptyPosition() Position { return b.empty }

// Layout returns a snapshot of all occupants.
func (b Board) Layout() Layout { return Layout(b.cells) }

// Count returns how many cells o occupies.
func (b Board) Count(o Occupant) int {
	n := 0
	for _, c := range b.cells {
		if c == o {
			n++
		}
	}
	return n
}

// LegalSources returns, in ascending order, the positions from which side may
// move into the empty cell.
func (b Board) LegalSources(side Occupant) []Position {
	if !side.IsPlayer() {
		return nil
	}
	var out []Position
	if b.empty != Center {
		for _, n := range adjacency[b.empty] {
			if b.cells[n] == side {
				out = append(out, n)
			}
		}
		slices.Sort(out)
		return out
	}
	// Into the center only from a counter that touches an opponent on the ring.
	opp := side.Opponent()
	for _, p := range adjacency[Center] {
		if b.cells[p] != side {
			continue
		}
		for _, n := range ringNeighbors(p) {
			if b.cells[n] == opp {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// IsLegalSource reports whether side may move the counter on p this turn.
func (b Board) IsLegalSource(p Position, side Occupant) bool {
	return slices.Contains(b.LegalSources(side), p)
}

// ApplyMove slides side's counter from from into the empty cell. The board is
// left untouched when the move is rejected.
func (b *Board) ApplyMove(from Position, side Occupant) error {
	if !from.Valid() {
		return fmt.Errorf("%w: position %d out of range", ErrIllegalMove, int(from))
	}
	if b.cells[from] != side || !side.IsPlayer() {
		return fmt.Errorf("%w: position %s is not held by %s", ErrIllegalMove, from, side)
	}
	if !b.IsLegalSource(from, side) {
		return fmt.Errorf("%w: %s cannot move from %s to %s", ErrIllegalMove, side, from, b.empty)
	}
	b.cells[b.empty] = side
	b.cells[from] = Empty
	b.empty = from
	b.mustHaveSingleEmpty()
	return nil
}

func (b *Board) mustHaveSingleEmpty() {
	if n := b.Count(Empty); n != 1 || b.cells[b.empty] != Empty {
		panic(fmt.Sprintf("mu torere: board corrupted, %d empty cells, empty pointer %s holds %s", n, b.empty, b.cells[b.empty]))
	}
}
