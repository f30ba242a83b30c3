package pdep

import (
	"encoding/binary"
	"fmt"

	"github.com/mhr3/streamvbyte"
)

// Journal records how many source bits each block set's selector consumed.
// It is the compact, portable record of a run: the counts are stored
// StreamVByte-encoded, and two captures of the same input can be compared
// set by set without re-running the deposit.
type Journal struct {
	data   []byte
	counts []uint32
	// offsets[j] is the bit count consumed before set j; len(counts)+1 entries
	offsets []int
}

// NewJournal encodes per-set selector popcounts into a journal.
func NewJournal(counts []uint32) *Journal {
	if len(counts) == 0 {
		return &Journal{offsets: []int{0}}
	}
	return newJournal(streamvbyte.EncodeUint32(counts, nil), append([]uint32(nil), counts...))
}

func newJournal(data []byte, counts []uint32) *Journal {
	offsets := make([]int, len(counts)+1)
	for i, c := range counts {
		offsets[i+1] = offsets[i] + int(c)
	}
	return &Journal{data: data, counts: counts, offsets: offsets}
}

// LoadJournal decodes previously encoded journal bytes holding count
// entries. Bytes past the encoded data are ignored.
func LoadJournal(data []byte, count int) (*Journal, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative entry count %d", ErrInvalidJournal, count)
	}
	if count == 0 {
		return NewJournal(nil), nil
	}
	need, err := encodedLen(data, count)
	if err != nil {
		return nil, err
	}
	data = data[:need]
	return newJournal(data, streamvbyte.DecodeUint32(data, count, nil)), nil
}

// encodedLen returns the number of bytes count StreamVByte values occupy:
// one control byte per four values, each value taking 1 + its 2-bit code.
func encodedLen(data []byte, count int) (int, error) {
	ctrlLen := (count + 3) / 4
	if len(data) < ctrlLen {
		return 0, fmt.Errorf("%w: %d entries need %d control bytes, got %d bytes",
			ErrInvalidJournal, count, ctrlLen, len(data))
	}
	n := ctrlLen
	for i := range count {
		code := (data[i/4] >> (2 * (i % 4))) & 0x03
		n += int(code) + 1
	}
	if len(data) < n {
		return 0, fmt.Errorf("%w: %d entries need %d bytes, got %d",
			ErrInvalidJournal, count, n, len(data))
	}
	return n, nil
}

// Bytes returns the encoded counts.
func (j *Journal) Bytes() []byte {
	return j.data
}

// Len returns the number of block sets recorded.
func (j *Journal) Len() int {
	return len(j.counts)
}

// Count returns the selector popcount of block set set.
func (j *Journal) Count(set int) (uint32, error) {
	if set < 0 || set >= len(j.counts) {
		return 0, fmt.Errorf("%w: set %d of %d", ErrSetOutOfRange, set, len(j.counts))
	}
	return j.counts[set], nil
}

// Offset returns the number of bits consumed before block set set, which is
// the logical-stream offset that set's selector read from. Offset(Len())
// equals Total().
func (j *Journal) Offset(set int) (int, error) {
	if set < 0 || set > len(j.counts) {
		return 0, fmt.Errorf("%w: set %d of %d", ErrSetOutOfRange, set, len(j.counts))
	}
	if j.offsets == nil {
		return 0, nil
	}
	return j.offsets[set], nil
}

// Total returns the number of bits consumed across all recorded sets.
func (j *Journal) Total() int {
	if j.offsets == nil {
		return 0
	}
	return j.offsets[len(j.counts)]
}

// Counts returns a copy of every recorded popcount.
func (j *Journal) Counts() []uint32 {
	if len(j.counts) == 0 {
		return nil
	}
	return append([]uint32(nil), j.counts...)
}

// FirstDifference returns the first block set whose popcount differs between
// j and other. A set present in only one of them counts as different.
// ok is false when the journals agree.
func (j *Journal) FirstDifference(other *Journal) (set int, ok bool) {
	n := min(len(j.counts), len(other.counts))
	for i := range n {
		if j.counts[i] != other.counts[i] {
			return i, true
		}
	}
	if len(j.counts) != len(other.counts) {
		return n, true
	}
	return 0, false
}

// MarshalBinary returns the entry count as a uvarint followed by the
// encoded counts.
func (j *Journal) MarshalBinary() ([]byte, error) {
	out := binary.AppendUvarint(nil, uint64(len(j.counts)))
	return append(out, j.data...), nil
}

// UnmarshalJournal decodes the output of MarshalBinary.
func UnmarshalJournal(b []byte) (*Journal, error) {
	count, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad entry count header", ErrInvalidJournal)
	}
	if count > uint64(len(b)) {
		return nil, fmt.Errorf("%w: entry count %d exceeds %d bytes", ErrInvalidJournal, count, len(b))
	}
	return LoadJournal(b[n:], int(count))
}
