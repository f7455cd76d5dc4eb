package app

import "github.com/google/uuid"

// newGameID returns a random UUIDv4 used as the key of a game.
func newGameID() string { return uuid.NewString() }

// NewPlayerID returns a random UUIDv4 identifying a browser or terminal seat.
func NewPlayerID() string { return uuid.NewString() }

// ValidID reports whether id looks like an id minted by this package.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
