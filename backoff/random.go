package backoff

import (
	"encoding/binary"
	mrand "math/rand/v2"

	"golang.org/x/crypto/blake2b"
)

// Random returns a uniformly distributed value in [0, 1).
type Random func() float64

// Global draws from the math/rand/v2 top-level generator.
func Global() float64 {
	return mrand.Float64() // #nosec G404 -- jitter does not need crypto randomness
}

// Fixed returns a source that always yields v.
func Fixed(v float64) Random {
	return func() float64 { return v }
}

// Seeded returns a reproducible source. The returned Random is not safe for
// concurrent use.
func Seeded(seed uint64) Random {
	rng := mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) // #nosec G404
	return rng.Float64
}

// Keyed returns a reproducible source seeded from a BLAKE2b digest of key.
// Callers that share a key get the same jitter; distinct keys are spread apart.
func Keyed(key string) Random {
	sum := blake2b.Sum256([]byte(key))
	rng := mrand.New(mrand.NewPCG( // #nosec G404
		binary.LittleEndian.Uint64(sum[0:8]),
		binary.LittleEndian.Uint64(sum[8:16]),
	))
	return rng.Float64
}
