package index

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

const (
	valuesMagic   = "RVEC"
	valuesVersion = 2

	valuesHeaderSize = 16
)

// ValueTable holds the identifier lists of all keys, addressed by key rank.
// All lists share one backing array, so Get never copies.
type ValueTable struct {
	offsets []int
	values  []uint64
	keysSum uint64
}

// Len returns the number of entries in the table.
func (t *ValueTable) Len() int {
	return len(t.offsets) - 1
}

// NumValues returns the total number of identifiers across all entries.
func (t *ValueTable) NumValues() int {
	return len(t.values)
}

// KeysChecksum returns the xxhash of the key structure the table was built with.
func (t *ValueTable) KeysChecksum() uint64 {
	return t.keysSum
}

// Get returns the identifiers stored for the given rank. The returned slice
// must not be modified.
func (t *ValueTable) Get(rank int) []uint64 {
	start, end := t.offsets[rank], t.offsets[rank+1]
	return t.values[start:end:end]
}

func DecodeValueTable(data []byte) (*ValueTable, error) {
	if len(data) < valuesHeaderSize {
		return nil, errors.Wrap(ErrCorruptIndex, "value table header is truncated")
	}
	if string(data[:4]) != valuesMagic {
		return nil, errors.Wrap(ErrCorruptIndex, "value table has invalid magic")
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != valuesVersion {
		return nil, errors.Wrapf(ErrCorruptIndex, "unsupported value table version %d", version)
	}

	keysSum := binary.LittleEndian.Uint64(data[8:])

	ptr := valuesHeaderSize
	readUvarint := func() (uint64, error) {
		x, n := binary.Uvarint(data[ptr:])
		if n <= 0 {
			return 0, errors.Wrapf(ErrCorruptIndex, "invalid varint at offset %d", ptr)
		}
		ptr += n
		return x, nil
	}

	count, err := readUvarint()
	if err != nil {
		return nil, err
	}
	// every entry takes at least one byte
	if count > uint64(len(data)-ptr) {
		return nil, errors.Wrapf(ErrCorruptIndex, "value table claims %d entries in %d bytes", count, len(data)-ptr)
	}

	t := &ValueTable{offsets: make([]int, 1, count+1), keysSum: keysSum}
	for i := uint64(0); i < count; i++ {
		n, err := readUvarint()
		if err != nil {
			return nil, err
		}
		if n > uint64(len(data)-ptr) {
			return nil, errors.Wrapf(ErrCorruptIndex, "entry %d claims %d values in %d bytes", i, n, len(data)-ptr)
		}
		for j := uint64(0); j < n; j++ {
			v, err := readUvarint()
			if err != nil {
				return nil, err
			}
			t.values = append(t.values, v)
		}
		t.offsets = append(t.offsets, len(t.values))
	}

	if ptr != len(data) {
		return nil, errors.Wrapf(ErrCorruptIndex, "%d trailing bytes after value table", len(data)-ptr)
	}

	return t, nil
}

// ValueWriter streams identifier lists in the value table format. The entry
// count and the key structure checksum are part of the header, so they have
// to be known up front.
type ValueWriter struct {
	w       *bufio.Writer
	count   uint64
	written uint64
	buf     [binary.MaxVarintLen64]byte
}

func NewValueWriter(w io.Writer, count int, keysSum uint64) (*ValueWriter, error) {
	vw := &ValueWriter{w: bufio.NewWriter(w), count: uint64(count)}

	var header [valuesHeaderSize]byte
	copy(header[:], valuesMagic)
	binary.LittleEndian.PutUint32(header[4:], valuesVersion)
	binary.LittleEndian.PutUint64(header[8:], keysSum)
	if _, err := vw.w.Write(header[:]); err != nil {
		return nil, err
	}
	if err := vw.putUvarint(vw.count); err != nil {
		return nil, err
	}
	return vw, nil
}

func (vw *ValueWriter) putUvarint(x uint64) error {
	n := binary.PutUvarint(vw.buf[:], x)
	_, err := vw.w.Write(vw.buf[:n])
	return err
}

// Write appends the identifiers of the next key.
func (vw *ValueWriter) Write(values []uint64) error {
	if vw.written == vw.count {
		return errors.Errorf("value table is full (%d entries)", vw.count)
	}
	if err := vw.putUvarint(uint64(len(values))); err != nil {
		return err
	}
	for _, v := range values {
		if err := vw.putUvarint(v); err != nil {
			return err
		}
	}
	vw.written++
	return nil
}

func (vw *ValueWriter) Close() error {
	if vw.written != vw.count {
		return errors.Errorf("value table has %d entries, expected %d", vw.written, vw.count)
	}
	return vw.w.Flush()
}

// EncodeValueTable serializes the given identifier lists, in rank order.
func EncodeValueTable(w io.Writer, lists [][]uint64, keysSum uint64) error {
	if len(lists) > math.MaxInt32 {
		return errors.New("too many entries")
	}
	vw, err := NewValueWriter(w, len(lists), keysSum)
	if err != nil {
		return err
	}
	for _, values := range lists {
		if err := vw.Write(values); err != nil {
			return err
		}
	}
	return vw.Close()
}
