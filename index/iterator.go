package index

import (
	"github.com/couchbase/vellum"
	"github.com/pkg/errors"
)

// Iterator is a single-pass cursor over (key, values) pairs in ascending key
// order. Matches are produced on demand, so a caller can stop early.
//
//	it, err := idx.Search(a)
//	for it.Next() {
//		fmt.Println(it.Key(), it.Values())
//	}
//	err = it.Err()
type Iterator struct {
	it     *vellum.FSTIterator
	values *ValueTable
	first  bool
	done   bool
	key    string
	vals   []uint64
	err    error
}

// Next advances to the next match and reports whether there is one.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.first {
		it.first = false
	} else if err := it.it.Next(); err != nil {
		if err != vellum.ErrIteratorDone {
			it.err = errors.Wrap(err, "iteration failed")
		}
		it.done = true
		return false
	}

	key, rank := it.it.Current()
	if rank >= uint64(it.values.Len()) {
		it.err = errors.Wrapf(ErrCorruptIndex, "key %q points to entry %d of %d", key, rank, it.values.Len())
		it.done = true
		return false
	}
	it.key = string(key)
	it.vals = it.values.Get(int(rank))
	return true
}

// Key returns the current key.
func (it *Iterator) Key() string {
	return it.key
}

// Values returns the identifiers of the current key. The slice is shared
// with the index and must not be modified.
func (it *Iterator) Values() []uint64 {
	return it.vals
}

func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator. It is safe to call more than once.
func (it *Iterator) Close() error {
	it.done = true
	if it.it != nil {
		return it.it.Close()
	}
	return nil
}
