// Package ident produces the identifiers assigned to a visitor entry at
// creation: the opaque record id used as QR payload and the human-readable
// visit number shown to staff.
package ident

import (
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NumberPattern matches numbers produced by Generator.Number.
var NumberPattern = regexp.MustCompile(`^V-\d{6}-\d{3}$`)

const suffixSpace = 1000

// Generator creates entry identifiers. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a Generator drawing suffixes from rnd. A nil rnd
// uses a time-seeded source.
func NewGenerator(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rnd: rnd}
}

// ID returns a new random 128-bit identifier.
func (g *Generator) ID() string {
	return uuid.NewString()
}

// Number returns a visit number for an entry created at now.
func (g *Generator) Number(now time.Time) string {
	g.mu.Lock()
	suffix := g.rnd.Intn(suffixSpace)
	g.mu.Unlock()
	return format(now.UnixMilli(), suffix)
}

// Numbers returns n pairwise distinct visit numbers for a batch created at
// now. A suffix already used in the batch is redrawn; once a millisecond
// window is exhausted the timestamp part moves on by one millisecond.
func (g *Generator) Numbers(now time.Time, n int) []string {
	out := make([]string, 0, n)
	if n <= 0 {
		return out
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	millis := now.UnixMilli()
	used := make(map[int]bool, n)
	for len(out) < n {
		if len(used) == suffixSpace {
			millis++
			used = make(map[int]bool, n-len(out))
		}
		suffix := g.rnd.Intn(suffixSpace)
		for used[suffix] {
			suffix = (suffix + 1) % suffixSpace
		}
		used[suffix] = true
		out = append(out, format(millis, suffix))
	}
	return out
}

func format(millis int64, suffix int) string {
	if millis < 0 {
		millis = -millis
	}
	return fmt.Sprintf("V-%06d-%03d", millis%1_000_000, suffix)
}
