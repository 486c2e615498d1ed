package combat

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strings"
)

// Source is the uniform integer generator consumed by the engine. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// pcgStream decorrelates the second PCG word from the seed.
const pcgStream = 0x9e3779b97f4a7c15

// NewSource builds a deterministic PCG generator for one simulation run.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^pcgStream))
}

// SeedFor derives a stable seed from arbitrary labels such as a scenario name.
func SeedFor(labels ...string) uint64 {
	//1.- Hash the labels with separators so each one influences the result independently.
	digest := sha256.Sum256([]byte("combatsim\x00" + strings.Join(labels, "\x00")))
	//2.- Fold the first eight bytes into the seed, avoiding zero.
	seed := binary.LittleEndian.Uint64(digest[0:8])
	if seed == 0 {
		seed = binary.LittleEndian.Uint64(digest[8:16]) | 1
	}
	return seed
}

// randInt draws uniformly from the inclusive range [low, high]. An empty range yields low.
func randInt(src Source, low, high int) int {
	if high < low {
		return low
	}
	return low + src.IntN(high-low+1)
}

// percentRoll reports whether a d100 roll in [0, 99] lands under chance.
func percentRoll(src Source, chance int) bool {
	return randInt(src, 0, 99) < chance
}
