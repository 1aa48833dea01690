// Package fuzzy builds edit-distance automata used to search the index.
package fuzzy

import (
	"unicode/utf8"

	"github.com/couchbase/vellum"
	"github.com/couchbase/vellum/levenshtein"
	"github.com/pkg/errors"
)

// MaxDistance is the largest edit distance an automaton can be built for.
// The number of automaton states grows quickly with the distance.
const MaxDistance = 2

// Length thresholds of the distance policy, in runes.
const (
	ExactMaxLen   = 4
	OneEditMaxLen = 8
)

var ErrInvalidAutomatonParameters = errors.New("invalid automaton parameters")

// Automaton accepts the UTF-8 encoded strings within some edit distance of a query.
type Automaton = vellum.Automaton

// Builder creates Levenshtein automata. The parametric tables for every
// supported distance are computed once in NewBuilder, after that the
// builder is read-only and can be shared between goroutines.
type Builder struct {
	builders [MaxDistance + 1]*levenshtein.LevenshteinAutomatonBuilder
}

func NewBuilder() (*Builder, error) {
	b := &Builder{}
	for d := range b.builders {
		lb, err := levenshtein.NewLevenshteinAutomatonBuilder(uint8(d), false)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to prepare automaton builder for distance %d", d)
		}
		b.builders[d] = lb
	}
	return b, nil
}

// Build returns an automaton accepting exactly the strings whose edit
// distance (insertions, deletions and substitutions of runes) to query is at
// most maxDistance.
func (b *Builder) Build(query string, maxDistance uint8) (Automaton, error) {
	if maxDistance > MaxDistance {
		return nil, errors.Wrapf(ErrInvalidAutomatonParameters, "distance %d exceeds the maximum of %d", maxDistance, MaxDistance)
	}
	if !utf8.ValidString(query) {
		return nil, errors.Wrap(ErrInvalidAutomatonParameters, "query is not valid UTF-8")
	}
	if maxDistance == 0 {
		return exact(query), nil
	}
	dfa, err := b.builders[maxDistance].BuildDfa(query, maxDistance)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build automaton for %q", query)
	}
	return dfa, nil
}

// exact accepts only the query itself. The state is the number of bytes
// matched so far, len(query)+1 is the dead state.
type exact string

func (e exact) Start() int {
	return 0
}

func (e exact) IsMatch(s int) bool {
	return s == len(e)
}

func (e exact) CanMatch(s int) bool {
	return s <= len(e)
}

func (e exact) WillAlwaysMatch(int) bool {
	return false
}

func (e exact) Accept(s int, b byte) int {
	if s < len(e) && e[s] == b {
		return s + 1
	}
	return len(e) + 1
}

// DistanceFor returns the edit distance allowed for a query. Short queries
// must match exactly, longer ones may contain one or two edits.
func DistanceFor(query string) uint8 {
	n := utf8.RuneCountInString(query)
	switch {
	case n <= ExactMaxLen:
		return 0
	case n <= OneEditMaxLen:
		return 1
	default:
		return 2
	}
}
