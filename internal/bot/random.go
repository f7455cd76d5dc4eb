// Package bot contains computer opponents.
package bot

import (
	"github.com/jaminalder/mu-torere/internal/domain"
	"golang.org/x/exp/rand"
)

// Random plays a uniformly random legal move.
type Random struct {
	r *rand.Rand
}

// NewRandom returns a player whose choices are fixed by seed.
func NewRandom(seed uint64) *Random {
	return &Random{r: rand.New(rand.NewSource(seed))}
}

// Choose picks one of the side to move's legal sources. It reports false when
// the game is over.
func (b *Random) Choose(g *domain.Game) (domain.Position, bool) {
	moves := g.LegalSources()
	if len(moves) == 0 {
		return 0, false
	}
	return moves[b.r.Intn(len(moves))], true
}
