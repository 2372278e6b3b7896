package utils

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"
)

// Random provides a deterministic pseudo-random number generator with
// convenient methods for common generation tasks. It's designed to be
// reproducible given the same seed.
type Random struct {
	rng  *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRandom creates a new Random instance with the given seed.
// If seed is 0, a cryptographically random seed is generated.
func NewRandom(seed int64) *Random {
	var actualSeed uint64
	if seed == 0 {
		actualSeed = generateRandomSeed()
	} else {
		actualSeed = uint64(seed)
	}

	return newFromSeed(actualSeed, 0xDEADBEEF)
}

func newFromSeed(seed, salt uint64) *Random {
	return &Random{
		rng:  rand.New(rand.NewPCG(seed, seed^salt)),
		seed: seed,
	}
}

// generateRandomSeed creates a cryptographically random seed
func generateRandomSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// Fallback to time-based seed if crypto/rand fails
		return uint64(time.Now().UnixNano())
	}
	// Keep it representable as a positive int64 so it can be replayed via --seed.
	return binary.LittleEndian.Uint64(b[:]) >> 1
}

// Seed returns the seed used to initialize this RNG
func (r *Random) Seed() uint64 {
	return r.seed
}

// Fork creates a new Random instance with a seed drawn from this stream.
// The child depends on how many values were drawn before the call.
func (r *Random) Fork() *Random {
	r.mu.Lock()
	defer r.mu.Unlock()

	newSeed := r.rng.Uint64()
	return newFromSeed(newSeed, 0xCAFEBABE)
}

// ForkN creates N independent Random instances with derived seeds.
func (r *Random) ForkN(n int) []*Random {
	results := make([]*Random, n)
	for i := 0; i < n; i++ {
		results[i] = r.Fork()
	}
	return results
}

// Derive returns an independent stream addressed by (stream, index).
// Unlike Fork it never touches the parent's state: the result is a pure
// function of the parent seed and the two keys, so work units can be
// generated in any order or on any goroutine and still reproduce.
func (r *Random) Derive(stream, index uint64) *Random {
	h := splitmix64(r.seed)
	h = splitmix64(h ^ stream)
	h = splitmix64(h ^ index)
	return newFromSeed(h, 0xCAFEBABE)
}

// splitmix64 is the finalizer from Steele et al., used only for seed mixing.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// IntN returns a pseudo-random int in [0, n)
func (r *Random) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Float64 returns a pseudo-random float64 in [0.0, 1.0)
func (r *Random) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// NormalFloat64 returns a normally distributed float64 with mean 0 and stddev 1
func (r *Random) NormalFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.NormFloat64()
}

// NormalFloat64Range returns a normally distributed float64 with given mean and stddev.
// A zero stddev still consumes one draw so the stream position stays fixed.
func (r *Random) NormalFloat64Range(mean, stddev float64) float64 {
	return mean + r.NormalFloat64()*stddev
}

// WeightedPickFloat selects an index with probability proportional to weights[i].
// Returns -1 for an empty slice; falls back to uniform when all weights are zero.
func (r *Random) WeightedPickFloat(weights []float64) int {
	if len(weights) == 0 {
		return -1
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return r.IntN(len(weights))
	}

	target := r.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if target < cumulative {
			return i
		}
	}

	return len(weights) - 1
}
