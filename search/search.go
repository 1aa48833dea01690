// Package search matches queries against the index with edit-distance automata.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/fuzzy"
	"github.com/raptor-search/go-raptor/index"
)

// Match intersects the automaton with the index. Both work on the raw UTF-8
// bytes of the keys, so the index traversal order drives the automaton
// directly and the matches come out in ascending key order.
func Match(idx *index.Index, a fuzzy.Automaton) (*index.Iterator, error) {
	return idx.Search(a)
}

// Searcher runs fuzzy lookups against one index. It holds no mutable state
// and is safe for concurrent use.
type Searcher struct {
	idx      *index.Index
	automata *fuzzy.Builder
}

func NewSearcher(idx *index.Index) (*Searcher, error) {
	automata, err := fuzzy.NewBuilder()
	if err != nil {
		return nil, err
	}
	return &Searcher{idx: idx, automata: automata}, nil
}

// Normalize returns the form of the query that is matched against the keys.
// Lower-casing would silently replace invalid bytes, so they are rejected first.
func Normalize(query string) (string, error) {
	if !utf8.ValidString(query) {
		return "", errors.Wrap(fuzzy.ErrInvalidAutomatonParameters, "query is not valid UTF-8")
	}
	return strings.ToLower(query), nil
}

// Lookup returns the keys within the allowed edit distance of the query.
// The distance depends on the length of the lower-cased query, see
// fuzzy.DistanceFor.
func (s *Searcher) Lookup(query string) (*index.Iterator, error) {
	query, err := Normalize(query)
	if err != nil {
		return nil, err
	}
	return s.LookupWithDistance(query, fuzzy.DistanceFor(query))
}

// LookupWithDistance matches the query as given, with an explicit distance.
func (s *Searcher) LookupWithDistance(query string, distance uint8) (*index.Iterator, error) {
	a, err := s.automata.Build(query, distance)
	if err != nil {
		return nil, err
	}
	it, err := Match(s.idx, a)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup of %q failed", query)
	}
	return it, nil
}
