package core

import "math/rand/v2"

// Random is the source of randomness behind simulated outcomes:
// join lookups, canned replies and generated tokens.
type Random interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
	// IntN returns a number in [0, n). It panics if n <= 0.
	IntN(n int) int
}

type systemRandom struct{}

func (systemRandom) Float64() float64 { return rand.Float64() }

func (systemRandom) IntN(n int) int { return rand.IntN(n) }

// SystemRandom is backed by the global math/rand/v2 generator.
var SystemRandom Random = systemRandom{}
