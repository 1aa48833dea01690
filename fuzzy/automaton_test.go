package fuzzy

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// editDistance is the plain dynamic programming Levenshtein distance over runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func accepts(a Automaton, s string) bool {
	state := a.Start()
	for i := 0; i < len(s); i++ {
		if !a.CanMatch(state) {
			return false
		}
		state = a.Accept(state, s[i])
	}
	return a.IsMatch(state)
}

func randomString(rnd *rand.Rand, alphabet []rune, minLen, maxLen int) string {
	n := minLen + rnd.Intn(maxLen-minLen+1)
	r := make([]rune, n)
	for i := range r {
		r[i] = alphabet[rnd.Intn(len(alphabet))]
	}
	return string(r)
}

func TestBuilder_Build(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	a, err := b.Build("cat", 0)
	require.NoError(t, err)
	assert.True(t, accepts(a, "cat"))
	assert.False(t, accepts(a, "cats"))
	assert.False(t, accepts(a, "cet"))
	assert.False(t, accepts(a, ""))

	a, err = b.Build("cat", 1)
	require.NoError(t, err)
	assert.True(t, accepts(a, "cat"))
	assert.True(t, accepts(a, "cats"))
	assert.True(t, accepts(a, "cet"))
	assert.True(t, accepts(a, "at"))
	assert.False(t, accepts(a, "act"))
	assert.False(t, accepts(a, "dog"))

	a, err = b.Build("kitten", 2)
	require.NoError(t, err)
	assert.True(t, accepts(a, "sitten"))
	assert.True(t, accepts(a, "sittin"))
	assert.False(t, accepts(a, "sitting"))
}

func TestBuilder_BuildUnicode(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	// one substituted rune, even though it is two bytes long
	a, err := b.Build("café", 1)
	require.NoError(t, err)
	assert.True(t, accepts(a, "cafe"))
	assert.True(t, accepts(a, "café"))
	assert.True(t, accepts(a, "cafés"))
	assert.False(t, accepts(a, "caffe"))
}

func TestBuilder_InvalidParameters(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	_, err = b.Build("caterpillar", 3)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidAutomatonParameters, errors.Cause(err))

	_, err = b.Build("\xff\xfe", 0)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidAutomatonParameters, errors.Cause(err))
}

func TestBuilder_Exact(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	a, err := b.Build("", 0)
	require.NoError(t, err)
	assert.True(t, accepts(a, ""))
	assert.False(t, accepts(a, "a"))

	a, err = b.Build("dog", 0)
	require.NoError(t, err)
	assert.True(t, accepts(a, "dog"))
	assert.False(t, accepts(a, "do"))
	assert.False(t, accepts(a, "dogs"))
	assert.False(t, accepts(a, "dig"))
}

func TestBuilder_MatchesEditDistance(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(1))
	alphabet := []rune("abcé")
	for i := 0; i < 200; i++ {
		query := randomString(rnd, alphabet, 1, 6)
		for d := uint8(0); d <= MaxDistance; d++ {
			a, err := b.Build(query, d)
			require.NoError(t, err)
			for j := 0; j < 50; j++ {
				candidate := randomString(rnd, alphabet, 0, 8)
				expected := editDistance(query, candidate) <= int(d)
				require.Equal(t, expected, accepts(a, candidate), "query=%q candidate=%q distance=%d", query, candidate, d)
			}
			require.True(t, accepts(a, query), "query=%q distance=%d", query, d)
		}
	}
}

func TestDistanceFor(t *testing.T) {
	tests := []struct {
		query    string
		distance uint8
	}{
		{"", 0},
		{"cat", 0},
		{"cats", 0},
		{"catch", 1},
		{"category", 1},
		{"categorys", 2},
		{"caterpillar", 2},
		{"éééé", 0},
		{"ééééé", 1},
		{"éééééééé", 1},
		{"ééééééééé", 2},
	}
	for _, test := range tests {
		assert.Equal(t, test.distance, DistanceFor(test.query), "query %q", test.query)
	}
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("", ""))
	assert.Equal(t, 3, editDistance("kitten", "sitting"))
	assert.Equal(t, 1, editDistance("café", "cafe"))
	assert.Equal(t, 2, editDistance("ab", "ba"))
}
