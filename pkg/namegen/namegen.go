// Package namegen generates unique, syntactically valid identifiers from a
// seeded pseudo-random source. For a fixed seed the sequence of names is
// reproducible, and no name is ever returned twice by one Generator.
package namegen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Alphabets for generated identifier bodies.
const (
	firstChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"
	restChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz1234567890"
)

// Generator defaults and limits.
const (
	DefaultLength = 8
	DefaultPrefix = "v"

	// maxCollisions is how many consecutive rejected candidates are drawn
	// before the body grows by one character.
	maxCollisions = 64

	// pcgStream is the fixed PCG stream selector; only the seed varies.
	pcgStream = 0x9e3779b97f4a7c15
)

// ErrInvalidLength is returned for a non-positive body length.
var ErrInvalidLength = errors.New("identifier length must be positive")

// Generator produces unique identifiers. Not safe for concurrent use.
type Generator struct {
	rng    *rand.Rand
	used   map[string]struct{}
	reject func(string) bool
	prefix string
	length int
}

// Option configures a Generator.
type Option func(*Generator)

// WithReject discards every candidate for which reject returns true, e.g.
// language keywords that a short, unprefixed body could spell.
func WithReject(reject func(name string) bool) Option {
	return func(g *Generator) {
		g.reject = reject
	}
}

// New returns a generator producing prefix + "_" + body names with bodies of
// the given length. An empty prefix yields bare bodies; a prefix that already
// ends in "_" is not given a second one.
func New(seed int64, prefix string, length int, opts ...Option) (*Generator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	g := &Generator{
		rng:    rand.New(rand.NewPCG(uint64(seed), pcgStream)), //nolint:gosec // Determinism, not secrecy.
		used:   make(map[string]struct{}),
		prefix: normalizePrefix(prefix),
		length: length,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "_") {
		return prefix
	}

	return prefix + "_"
}

// Generate returns a fresh name with the configured body length.
func (g *Generator) Generate() string {
	return g.GenerateLength(g.length)
}

// GenerateLength returns a fresh name whose body has the given length.
// Non-positive lengths are treated as 1.
func (g *Generator) GenerateLength(length int) string {
	length = max(length, 1)

	for collisions := 0; ; collisions++ {
		if collisions == maxCollisions {
			length++
			collisions = 0
		}

		candidate := g.buildCandidate(length)

		if _, taken := g.used[candidate]; taken {
			continue
		}

		if g.reject != nil && g.reject(candidate) {
			continue
		}

		g.used[candidate] = struct{}{}

		return candidate
	}
}

// buildCandidate draws one name; the random sequence depends only on the seed
// and the number of prior draws.
func (g *Generator) buildCandidate(length int) string {
	var buf strings.Builder

	buf.Grow(len(g.prefix) + length)
	buf.WriteString(g.prefix)
	buf.WriteByte(firstChars[g.rng.IntN(len(firstChars))])

	for range length - 1 {
		buf.WriteByte(restChars[g.rng.IntN(len(restChars))])
	}

	return buf.String()
}

// Reserve marks name as taken so it is never generated. Used for identifiers
// already present in the input.
func (g *Generator) Reserve(name string) {
	g.used[name] = struct{}{}
}

// IsUsed reports whether name was generated or reserved.
func (g *Generator) IsUsed(name string) bool {
	_, ok := g.used[name]

	return ok
}

// UsedCount returns the number of generated and reserved names.
func (g *Generator) UsedCount() int {
	return len(g.used)
}

// Prefix returns the normalized prefix, including its trailing underscore.
func (g *Generator) Prefix() string {
	return g.prefix
}
