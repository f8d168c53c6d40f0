package game

import "math/rand/v2"

// Random is the source of every random draw the game makes: target
// selection, coin flips, question picks and vote tie-breaks.
type Random interface {
	// IntN returns a value in [0, n). n is always > 0.
	IntN(n int) int
}

type defaultRandom struct{}

func (defaultRandom) IntN(n int) int { return rand.IntN(n) }

// NewRandom returns a Random backed by the runtime's seeded generator.
func NewRandom() Random { return defaultRandom{} }

func coinFlip(rng Random) bool {
	return rng.IntN(2) == 0
}
