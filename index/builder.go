package index

import (
	"bytes"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/couchbase/vellum"
	"github.com/pkg/errors"
)

// Entry is one key with its identifiers.
type Entry struct {
	Key    string
	Values []uint64
}

// EntryReader is an abstraction for iterating over entries in ascending key order.
type EntryReader interface {
	// ReadEntry returns the next entry, or io.EOF when there are no more.
	ReadEntry() (Entry, error)
}

type entrySliceReader struct {
	entries []Entry
	pos     int
}

// NewEntrySliceReader returns a reader over already sorted entries.
func NewEntrySliceReader(entries []Entry) EntryReader {
	return &entrySliceReader{entries: entries}
}

func (r *entrySliceReader) ReadEntry() (Entry, error) {
	if r.pos >= len(r.entries) {
		return Entry{}, io.EOF
	}
	e := r.entries[r.pos]
	r.pos++
	return e, nil
}

// Builder writes the two index artifacts. Keys go to the key structure as
// they are added; identifier lists are buffered and written on Close,
// because the value table header carries the entry count and the checksum
// of the finished key structure.
type Builder struct {
	fst     *vellum.Builder
	keysSum *xxhash.Digest
	values  io.Writer
	lists   [][]uint64
	last    []byte
	closed  bool
}

func NewBuilder(keys, values io.Writer) (*Builder, error) {
	keysSum := xxhash.New()
	fst, err := vellum.New(io.MultiWriter(keys, keysSum), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create key structure builder")
	}
	return &Builder{fst: fst, keysSum: keysSum, values: values}, nil
}

// Add appends a key. Keys must be strictly increasing in byte order.
func (b *Builder) Add(key string, values []uint64) error {
	if b.closed {
		return errors.New("builder is closed")
	}
	if len(b.lists) > 0 {
		switch bytes.Compare([]byte(key), b.last) {
		case 0:
			return errors.Wrapf(ErrDuplicateKey, "%q", key)
		case -1:
			return errors.Wrapf(ErrOutOfOrder, "%q after %q", key, b.last)
		}
	}
	err := b.fst.Insert([]byte(key), uint64(len(b.lists)))
	if err != nil {
		return errors.Wrapf(err, "failed to insert %q", key)
	}
	b.last = append(b.last[:0], key...)
	b.lists = append(b.lists, values)
	return nil
}

// Len returns the number of keys added so far.
func (b *Builder) Len() int {
	return len(b.lists)
}

func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.fst.Close()
	if err != nil {
		return errors.Wrap(err, "failed to finish key structure")
	}
	err = EncodeValueTable(b.values, b.lists, b.keysSum.Sum64())
	if err != nil {
		return errors.Wrap(err, "failed to write value table")
	}
	return nil
}

type BuildStats struct {
	NumKeys   int           `json:"nkeys"`
	NumValues int           `json:"nvalues"`
	Duration  time.Duration `json:"duration"`
}

// Build writes both artifacts to the directory. Nothing is replaced unless
// the whole input was indexed. Each file is replaced atomically, but not the
// pair: if the value table cannot be committed after the key structure was,
// the directory holds artifacts of two builds, which Load rejects because the
// key structure checksum in the value table does not match.
func Build(dir Dir, input EntryReader) (*BuildStats, error) {
	started := time.Now()

	keysFile, err := dir.CreateFile(KeysFilename)
	if err != nil {
		return nil, errors.Wrap(err, "create failed")
	}
	defer keysFile.Close()

	var values bytes.Buffer
	builder, err := NewBuilder(keysFile, &values)
	if err != nil {
		return nil, err
	}

	stats := &BuildStats{}
	for {
		entry, err := input.ReadEntry()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read failed")
		}
		err = builder.Add(entry.Key, entry.Values)
		if err != nil {
			return nil, err
		}
		stats.NumKeys++
		stats.NumValues += len(entry.Values)
	}

	err = builder.Close()
	if err != nil {
		return nil, err
	}

	err = keysFile.Commit()
	if err != nil {
		return nil, errors.Wrap(err, "file commit failed")
	}
	err = WriteFile(dir, ValuesFilename, func(w io.Writer) error {
		_, err := values.WriteTo(w)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to write %v", ValuesFilename)
	}

	stats.Duration = time.Since(started)
	log.Infof("built index in %v (keys=%v, values=%v, duration=%s)", dir, stats.NumKeys, stats.NumValues, stats.Duration)
	return stats, nil
}

// BuildBytes builds the artifacts in memory. Mostly useful for tests and tools.
func BuildBytes(entries []Entry) (keys, values []byte, err error) {
	var kb, vb bytes.Buffer
	builder, err := NewBuilder(&kb, &vb)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if err := builder.Add(e.Key, e.Values); err != nil {
			return nil, nil, err
		}
	}
	if err := builder.Close(); err != nil {
		return nil, nil, err
	}
	return kb.Bytes(), vb.Bytes(), nil
}
