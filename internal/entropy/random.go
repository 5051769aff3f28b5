// Package entropy provides the randomness source behind liability draws
// and other stochastic ledger events. Seedable for deterministic tests,
// crypto/rand backed otherwise.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mathrand "math/rand"
	"sync"
)

// Source hands out uniform random values. A nil *Source is valid and
// falls through to crypto/rand directly.
type Source struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// New returns a Source seeded from crypto/rand.
func New() *Source {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Degenerate seed; callers still get a working stream.
		return NewSeeded(1)
	}
	return NewSeeded(int64(binary.LittleEndian.Uint64(buf[:])))
}

// NewSeeded returns a deterministic Source for tests and reproducible
// world generation.
func NewSeeded(seed int64) *Source {
	return &Source{rng: mathrand.New(mathrand.NewSource(seed))}
}

// IntN returns a uniform int in [0, n). n must be positive.
func (s *Source) IntN(n int) int {
	if s == nil {
		return int(cryptoFloat() * float64(n))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Float returns a uniform float64 in [0, 1).
func (s *Source) Float() float64 {
	if s == nil {
		return cryptoFloat()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// cryptoFloat generates a uniform float64 in [0, 1) from crypto/rand.
func cryptoFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// 53 bits for a uniform float64 mantissa.
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return math.Min(float64(n)/float64(1<<53), math.Nextafter(1, 0))
}
