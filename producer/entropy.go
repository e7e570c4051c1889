// File: producer/entropy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package producer

import (
	"github.com/valyala/fastrand"

	"github.com/momentics/tickpipe/api"
)

var _ api.Entropy = (*FastRand)(nil)

// FastRand is a seedable, non-cryptographic entropy source.
// Not safe for concurrent use; the producer goroutine owns it.
type FastRand struct {
	rng fastrand.RNG
}

// NewFastRand returns a source seeded with seed.
func NewFastRand(seed uint32) *FastRand {
	f := &FastRand{}
	f.rng.Seed(seed)
	return f
}

// Intn returns a value in [0, k); 0 when k <= 0.
func (f *FastRand) Intn(k int) int {
	if k <= 0 {
		return 0
	}
	return int(f.rng.Uint32n(uint32(k)))
}
