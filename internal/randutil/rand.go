// Package randutil centralises how deterministic RNGs are derived so every
// call site asking for the same seed observes the same shuffle sequence.
package randutil

import rand "math/rand/v2"

// New returns a *rand.Rand seeded deterministically from seed. rand/v2's
// PCG wants two well-mixed 64-bit words, so the seed is expanded through a
// splitmix-style finalizer.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u^0x9e3779b97f4a7c15)))
}

func mix(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
