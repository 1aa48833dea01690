package search

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/fuzzy"
	"github.com/raptor-search/go-raptor/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type match struct {
	Key    string
	Values []uint64
}

func newTestSearcher(t *testing.T, entries []index.Entry) *Searcher {
	entries = append([]index.Entry(nil), entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	keys, values, err := index.BuildBytes(entries)
	require.NoError(t, err)
	idx, err := index.Load(keys, values)
	require.NoError(t, err)
	s, err := NewSearcher(idx)
	require.NoError(t, err)
	return s
}

func lookup(t *testing.T, s *Searcher, query string) []match {
	it, err := s.Lookup(query)
	require.NoError(t, err)
	defer it.Close()
	result := []match{}
	for it.Next() {
		result = append(result, match{it.Key(), append([]uint64(nil), it.Values()...)})
	}
	require.NoError(t, it.Err())
	return result
}

var sampleEntries = []index.Entry{
	{Key: "cat", Values: []uint64{1, 2}},
	{Key: "cats", Values: []uint64{3}},
	{Key: "dog", Values: []uint64{4}},
}

func TestLookup_SampleScenario(t *testing.T) {
	s := newTestSearcher(t, sampleEntries)

	assert.Equal(t, []match{{"cat", []uint64{1, 2}}}, lookup(t, s, "cat"))
	assert.Equal(t, []match{{"cats", []uint64{3}}}, lookup(t, s, "cats"))
	assert.Equal(t, []match{}, lookup(t, s, "cet"))
	assert.Equal(t, []match{}, lookup(t, s, "caterpillar"))
}

func TestLookup_LowerCase(t *testing.T) {
	s := newTestSearcher(t, sampleEntries)
	assert.Equal(t, []match{{"cat", []uint64{1, 2}}}, lookup(t, s, "CaT"))
}

func TestLookup_Tiers(t *testing.T) {
	s := newTestSearcher(t, []index.Entry{
		{Key: "caterpillar", Values: []uint64{1}},
		{Key: "category", Values: []uint64{2}},
		{Key: "categorys", Values: []uint64{3}},
		{Key: "cattle", Values: []uint64{4}},
		{Key: "kettle", Values: []uint64{5}},
	})

	// 6 runes, one edit allowed
	assert.Equal(t, []match{{"cattle", []uint64{4}}}, lookup(t, s, "catlle"))
	// 9 runes, two edits allowed
	assert.Equal(t, []match{{"category", []uint64{2}}, {"categorys", []uint64{3}}}, lookup(t, s, "catigorys"))
	// 10 runes, two edits allowed
	assert.Equal(t, []match{{"caterpillar", []uint64{1}}}, lookup(t, s, "katerpilar"))
}

func TestLookup_Deterministic(t *testing.T) {
	s := newTestSearcher(t, sampleEntries)
	first := lookup(t, s, "dogs")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, lookup(t, s, "dogs"))
	}
}

func TestLookupWithDistance_Invalid(t *testing.T) {
	s := newTestSearcher(t, sampleEntries)
	_, err := s.LookupWithDistance("cat", fuzzy.MaxDistance+1)
	require.Error(t, err)
	assert.Equal(t, fuzzy.ErrInvalidAutomatonParameters, errors.Cause(err))
}

func TestLookup_InvalidUTF8(t *testing.T) {
	s := newTestSearcher(t, sampleEntries)
	_, err := s.Lookup("ca\xfft")
	require.Error(t, err)
	assert.Equal(t, fuzzy.ErrInvalidAutomatonParameters, errors.Cause(err))
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
		}
	}
	return d[len(ra)][len(rb)]
}

// Every key within the bound is returned, nothing else, in ascending order.
func TestLookup_DistanceCorrectness(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdé")
	word := func(minLen, maxLen int) string {
		r := make([]rune, minLen+rnd.Intn(maxLen-minLen+1))
		for i := range r {
			r[i] = alphabet[rnd.Intn(len(alphabet))]
		}
		return string(r)
	}

	set := make(map[string]bool)
	for len(set) < 500 {
		set[word(1, 11)] = true
	}
	var keys []string
	for k := range set {
		keys = append(keys, k)
	}
	entries := make([]index.Entry, 0, len(keys))
	sort.Strings(keys)
	for i, k := range keys {
		entries = append(entries, index.Entry{Key: k, Values: []uint64{uint64(i)}})
	}
	s := newTestSearcher(t, entries)

	queries := append([]string{}, keys[:50]...)
	for i := 0; i < 100; i++ {
		queries = append(queries, word(1, 12))
	}

	for _, q := range queries {
		bound := int(fuzzy.DistanceFor(q))
		var expected []string
		for _, k := range keys {
			if levenshtein(q, k) <= bound {
				expected = append(expected, k)
			}
		}

		var got []string
		for _, m := range lookup(t, s, q) {
			got = append(got, m.Key)
		}
		require.Equal(t, expected, got, "query %q, bound %d", q, bound)
		if set[q] {
			require.Contains(t, got, q)
		}
	}
}
