package index

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_OutOfOrder(t *testing.T) {
	var keys, values bytes.Buffer
	b, err := NewBuilder(&keys, &values)
	require.NoError(t, err)

	require.NoError(t, b.Add("b", []uint64{1}))
	err = b.Add("a", []uint64{2})
	require.Error(t, err)
	assert.Equal(t, ErrOutOfOrder, errors.Cause(err))

	err = b.Add("b", []uint64{3})
	require.Error(t, err)
	assert.Equal(t, ErrDuplicateKey, errors.Cause(err))

	assert.Equal(t, 1, b.Len())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.Error(t, b.Add("c", nil))
}

func TestBuilder_ByteOrder(t *testing.T) {
	// "Z" < "a" < "é" when compared as raw bytes
	entries := []Entry{
		{"Z", []uint64{1}},
		{"a", []uint64{2}},
		{"ab", []uint64{3}},
		{"é", []uint64{4}},
	}
	idx := loadTestIndex(t, entries)

	it, err := idx.All()
	require.NoError(t, err)
	var keys []string
	for _, m := range collect(t, it) {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"Z", "a", "ab", "é"}, keys)
}

func TestBuild_KeepsOldArtifactsOnFailure(t *testing.T) {
	dir := NewMemDir()
	_, err := Build(dir, NewEntrySliceReader(testEntries))
	require.NoError(t, err)

	_, err = Build(dir, NewEntrySliceReader([]Entry{{"b", nil}, {"a", nil}}))
	require.Error(t, err)

	idx, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, len(testEntries), idx.Len())
}

type failingWriter struct {
	FileWriter
}

func (f failingWriter) Commit() error {
	return errors.New("no space left on device")
}

// failingDir refuses to commit one file.
type failingDir struct {
	Dir
	name string
}

func (d failingDir) CreateFile(name string) (FileWriter, error) {
	f, err := d.Dir.CreateFile(name)
	if err != nil || name != d.name {
		return f, err
	}
	return failingWriter{f}, nil
}

func TestBuild_ValueCommitFails(t *testing.T) {
	dir := NewMemDir()
	_, err := Build(dir, NewEntrySliceReader(testEntries))
	require.NoError(t, err)

	renamed := make([]Entry, len(testEntries))
	for i, e := range testEntries {
		renamed[i] = Entry{Key: "new-" + e.Key, Values: e.Values}
	}
	_, err = Build(failingDir{dir, ValuesFilename}, NewEntrySliceReader(renamed))
	require.Error(t, err)

	// new keys next to the old value table with the same entry count
	_, err = Open(dir)
	require.Error(t, err)
	assert.Equal(t, ErrCorruptIndex, errors.Cause(err))
}
