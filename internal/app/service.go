package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jaminalder/mu-torere/internal/domain"
	"github.com/rs/zerolog"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
)

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID      string
	Game    domain.Game
	A       string
	B       string
	Created time.Time
	Updated time.Time
}

// Seat returns the side held by playerID, or Empty for a spectator.
func (gs *GameState) Seat(playerID string) domain.Occupant {
	switch {
	case playerID == "":
		return domain.Empty
	case gs.A == playerID:
		return domain.PlayerA
	case gs.B == playerID:
		return domain.PlayerB
	}
	return domain.Empty
}

type subscriber struct {
	mu       sync.Mutex
	ch       chan []byte
	closed   bool
	playerID string
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// send delivers p without blocking. An unread payload still in the buffer is
// stale once p exists, so it is replaced; send reports whether that happened.
func (s *subscriber) send(p []byte) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- p:
			return replaced
		default:
		}
		select {
		case <-s.ch:
			replaced = true
		default:
		}
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithGameConfig sets the layout and starting side of new games.
func WithGameConfig(cfg domain.Config) Option { return func(s *Service) { s.cfg = cfg } }

// Renderer produces the payload sent to one subscriber. viewer is the seat
// the subscriber holds, Empty for spectators.
type Renderer func(gs GameState, viewer domain.Occupant) []byte

// WithRenderer sets the function producing broadcast payloads.
func WithRenderer(r Renderer) Option { return func(s *Service) { s.SetRenderer(r) } }

// Service manages games and subscribers. Every engine is only touched while
// holding mu.
type Service struct {
	mu     sync.Mutex
	games  map[string]*GameState
	subs   map[string]map[*subscriber]struct{}
	render Renderer
	cfg    domain.Config
	log    zerolog.Logger
}

func noRender(GameState, domain.Occupant) []byte { return nil }

// NewService creates a service. Without WithRenderer broadcasts carry no
// payload.
func NewService(opts ...Option) *Service {
	s := &Service{
		games:  make(map[string]*GameState),
		subs:   make(map[string]map[*subscriber]struct{}),
		render: noRender,
		cfg:    domain.DefaultConfig(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = noRender
		return
	}
	s.render = renderer
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame() (*GameState, error) {
	g, err := domain.NewWithConfig(s.cfg)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newGameID()
	now := time.Now()
	gs := &GameState{ID: id, Game: *g, Created: now, Updated: now}
	s.games[id] = gs
	s.log.Info().Str("game", id).Str("start", g.StartingSide().String()).Str("layout", g.InitialLayout().String()).Msg("game created")
	cp := *gs
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// Count returns the number of live games.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(id, playerID string) (domain.Occupant, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	side := domain.Empty
	if gs.A == "" || gs.A == playerID {
		if gs.A == "" {
			s.log.Info().Str("game", id).Str("player", playerID).Msg("player A seated")
		}
		gs.A = playerID
		side = domain.PlayerA
	} else if gs.B == "" || gs.B == playerID {
		if gs.B == "" {
			s.log.Info().Str("game", id).Str("player", playerID).Msg("player B seated")
		}
		gs.B = playerID
		side = domain.PlayerB
	}
	gs.Updated = time.Now()
	cp := *gs
	return side, &cp, nil
}

// Play validates seat and turn, applies a move, updates timestamps, and broadcasts.
func (s *Service) Play(id, playerID string, from domain.Position) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	// Validate player is seated
	seat := gs.Seat(playerID)
	if seat == domain.Empty {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if gs.Game.Over() {
		s.mu.Unlock()
		return nil, domain.ErrGameOver
	}
	// Validate turn
	if seat != gs.Game.CurrentSide() {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	to := gs.Game.EmptyPosition()
	if err := gs.Game.PlayTurn(from); err != nil {
		s.mu.Unlock()
		s.log.Debug().Str("game", id).Str("side", seat.String()).Int("from", int(from)).Err(err).Msg("move rejected")
		return nil, err
	}
	gs.Updated = time.Now()
	ev := s.log.Debug()
	if gs.Game.Over() {
		ev = s.log.Info().Str("winner", gs.Game.Winner().String())
	}
	ev.Str("game", id).Str("side", seat.String()).Int("from", int(from)).Int("to", int(to)).Int("moves", gs.Game.Moves()).Msg("move played")

	s.publishLocked(gs)
	cp := *gs
	s.mu.Unlock()
	return &cp, nil
}

// Reset starts the game over from the configured layout. Only seated players
// may reset; seats are kept.
func (s *Service) Reset(id, playerID string) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if gs.Seat(playerID) == domain.Empty {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	gs.Game.Reset()
	gs.Updated = time.Now()
	s.log.Info().Str("game", id).Str("player", playerID).Msg("game reset")

	s.publishLocked(gs)
	cp := *gs
	s.mu.Unlock()
	return &cp, nil
}

// Subscribe registers playerID as a subscriber for a game. The channel holds
// at most the latest payload. Returns the channel and an unsubscribe func;
// both are released when ctx is done.
func (s *Service) Subscribe(ctx context.Context, id, playerID string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, func() {}, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1), playerID: playerID}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// publishLocked renders gs once per seat and hands every subscriber its
// payload. Sending under s.mu keeps payloads in the order the state changed.
// Caller holds s.mu.
func (s *Service) publishLocked(gs *GameState) {
	set := s.subs[gs.ID]
	if len(set) == 0 {
		return
	}
	cp := *gs
	payloads := make(map[domain.Occupant][]byte, 3)
	replaced := 0
	for sub := range set {
		seat := cp.Seat(sub.playerID)
		p, ok := payloads[seat]
		if !ok {
			p = s.render(cp, seat)
			payloads[seat] = p
		}
		if sub.send(p) {
			replaced++
		}
	}
	if replaced > 0 {
		s.log.Debug().Str("game", gs.ID).Int("replaced", replaced).Msg("replaced unread updates")
	}
}
