// Package random provides the injected random source used by galaxy
// generation and system exploration, plus seed helpers.
//
// Production code seeds a ChaCha8 stream from crypto/rand; tests use New with
// a fixed seed so that generated galaxies and slot draws are reproducible.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Source is a uniform random source.
type Source interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// New returns a deterministic source for seed.
func New(seed int64) Source {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// Derive returns an independent deterministic stream for (seed, stream), so
// work split across goroutines stays reproducible.
func Derive(seed int64, stream uint64) Source {
	return rand.New(rand.NewPCG(uint64(seed), stream*0x9e3779b97f4a7c15+1))
}

// NewProduction returns a ChaCha8 source keyed from crypto/rand.
func NewProduction() (Source, error) {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("read random key: %w", err)
	}
	return rand.New(rand.NewChaCha8(key)), nil
}

// Choice returns a uniformly chosen element. items must not be empty.
func Choice[T any](src Source, items []T) T {
	return items[src.IntN(len(items))]
}

// Shuffle permutes items in place (Fisher-Yates).
func Shuffle[T any](src Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// WeightedIndex picks an index with probability proportional to weight(i).
// Non-positive weights are never picked; it returns -1 when all weights are
// non-positive.
func WeightedIndex(src Source, n int, weight func(i int) float64) int {
	total := 0.0
	for i := 0; i < n; i++ {
		if w := weight(i); w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	roll := src.Float64() * total
	last := -1
	for i := 0; i < n; i++ {
		w := weight(i)
		if w <= 0 {
			continue
		}
		last = i
		if roll < w {
			return i
		}
		roll -= w
	}
	// float rounding can leave roll marginally above the final weight
	return last
}

// Weighted picks an element with probability proportional to selector(item).
func Weighted[T any](src Source, items []T, selector func(T) float64) (T, bool) {
	i := WeightedIndex(src, len(items), func(i int) float64 { return selector(items[i]) })
	if i < 0 {
		var zero T
		return zero, false
	}
	return items[i], true
}
