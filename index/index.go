package index

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/couchbase/vellum"
	"github.com/pkg/errors"
)

const (
	KeysFilename   = "map.fst"
	ValuesFilename = "values.vecs"
)

var (
	ErrCorruptIndex = errors.New("corrupt index")
	ErrOutOfOrder   = errors.New("keys must be added in ascending order")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Automaton drives Search. Transitions are over the raw bytes of the keys.
type Automaton = vellum.Automaton

// Index is an immutable mapping from sorted unique string keys to lists of
// uint64 identifiers. It is safe for concurrent use by multiple goroutines.
type Index struct {
	fst    *vellum.FST
	values *ValueTable
}

// Load builds an Index from the serialized key structure and value table.
// The index keeps references to both buffers.
func Load(keys, values []byte) (idx *Index, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx = nil
			err = errors.Wrapf(ErrCorruptIndex, "key structure: %v", r)
		}
	}()

	fst, err := vellum.Load(keys)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptIndex, "key structure: %v", err)
	}

	table, err := DecodeValueTable(values)
	if err != nil {
		return nil, err
	}

	if fst.Len() != table.Len() {
		return nil, errors.Wrapf(ErrCorruptIndex, "key structure has %d keys, value table has %d entries", fst.Len(), table.Len())
	}
	if sum := xxhash.Sum64(keys); sum != table.KeysChecksum() {
		return nil, errors.Wrapf(ErrCorruptIndex, "value table belongs to a different key structure (checksum %016x, expected %016x)", table.KeysChecksum(), sum)
	}

	idx = &Index{fst: fst, values: table}
	if err := idx.verify(); err != nil {
		return nil, err
	}
	return idx, nil
}

// verify walks all keys once and checks that they are ordered and point
// to valid value table entries.
func (idx *Index) verify() error {
	it, err := idx.fst.Iterator(nil, nil)
	if err == vellum.ErrIteratorDone {
		return nil
	}
	if err != nil {
		return errors.Wrapf(ErrCorruptIndex, "key structure: %v", err)
	}
	defer it.Close()

	var (
		last  []byte
		count int
	)
	for err == nil {
		key, rank := it.Current()
		if count > 0 && string(key) <= string(last) {
			return errors.Wrapf(ErrCorruptIndex, "key %q is not greater than %q", key, last)
		}
		if rank >= uint64(idx.values.Len()) {
			return errors.Wrapf(ErrCorruptIndex, "key %q points to entry %d of %d", key, rank, idx.values.Len())
		}
		last = append(last[:0], key...)
		count++
		err = it.Next()
	}
	if err != vellum.ErrIteratorDone {
		return errors.Wrapf(ErrCorruptIndex, "key structure: %v", err)
	}
	if count != idx.values.Len() {
		return errors.Wrapf(ErrCorruptIndex, "iterated %d keys, expected %d", count, idx.values.Len())
	}
	return nil
}

// Open loads the index artifacts from the directory.
func Open(dir Dir) (*Index, error) {
	keys, err := ReadFile(dir, KeysFilename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load keys")
	}
	values, err := ReadFile(dir, ValuesFilename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load values")
	}
	return Load(keys, values)
}

// Len returns the number of keys.
func (idx *Index) Len() int {
	return idx.values.Len()
}

// NumValues returns the total number of identifiers.
func (idx *Index) NumValues() int {
	return idx.values.NumValues()
}

// Get returns the identifiers of an exact key.
func (idx *Index) Get(key string) ([]uint64, bool) {
	rank, ok, err := idx.fst.Get([]byte(key))
	if err != nil || !ok {
		return nil, false
	}
	return idx.values.Get(int(rank)), true
}

// Search returns the keys accepted by the automaton, in ascending order.
// Only the parts of the key structure where the automaton can still match
// are visited.
func (idx *Index) Search(a Automaton) (*Iterator, error) {
	it, err := idx.fst.Search(a, nil, nil)
	if err == vellum.ErrIteratorDone {
		return &Iterator{done: true}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "search failed")
	}
	return &Iterator{it: it, values: idx.values, first: true}, nil
}

// All returns every key in ascending order.
func (idx *Index) All() (*Iterator, error) {
	it, err := idx.fst.Iterator(nil, nil)
	if err == vellum.ErrIteratorDone {
		return &Iterator{done: true}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "iteration failed")
	}
	return &Iterator{it: it, values: idx.values, first: true}, nil
}

func (idx *Index) Close() error {
	return idx.fst.Close()
}

func (idx *Index) String() string {
	return fmt.Sprintf("index(keys=%d, values=%d)", idx.Len(), idx.NumValues())
}
