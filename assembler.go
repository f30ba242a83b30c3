package pdep

import (
	"fmt"
	"math/big"
)

// Assembler stitches successive physical blocks into logical streams and
// tracks how many low-order bits of every stream earlier selectors consumed.
//
// A selector's density varies from set to set, so bits a sparse selector did
// not consume stay available to later sets: the logical streams keep their
// full history and the read cursor is global, not per block.
//
// An Assembler belongs to a single verification run and is not safe for
// concurrent use. Independent runs need independent Assemblers.
type Assembler struct {
	width   int
	streams int

	// logical[i] = Σ_j block_i_j · 2^(width·j)
	logical []*big.Int

	// appended is the number of block sets folded in so far
	appended int

	// consumed is the global read cursor into every logical stream
	consumed int

	// counts holds the selector popcount of each appended set
	counts []uint32

	scratch *big.Int
}

// NewAssembler creates an empty Assembler for streams logical streams of
// width-bit blocks. It fails with ErrInvalidSwizzleShape unless streams
// evenly divides width.
func NewAssembler(width, streams int) (*Assembler, error) {
	if _, err := FieldWidth(width, streams); err != nil {
		return nil, err
	}
	a := &Assembler{
		width:   width,
		streams: streams,
		logical: make([]*big.Int, streams),
		scratch: new(big.Int),
	}
	a.Reset()
	return a, nil
}

// Reset discards all appended blocks so the Assembler can start a new run.
func (a *Assembler) Reset() {
	for i := range a.logical {
		a.logical[i] = new(big.Int)
	}
	a.appended = 0
	a.consumed = 0
	a.counts = a.counts[:0]
}

// Width returns the block width in bits.
func (a *Assembler) Width() int {
	return a.width
}

// Streams returns the number of logical streams.
func (a *Assembler) Streams() int {
	return a.streams
}

// Sets returns the number of block sets appended so far.
func (a *Assembler) Sets() int {
	return a.appended
}

// Consumed returns the number of bits the selectors have consumed so far.
func (a *Assembler) Consumed() int {
	return a.consumed
}

// Available returns the number of bits appended to each logical stream.
func (a *Assembler) Available() int {
	return a.width * a.appended
}

// Stream returns a copy of logical stream i.
func (a *Assembler) Stream(i int) *big.Int {
	return new(big.Int).Set(a.logical[i])
}

// Journal returns the per-set consumption record of the run so far.
func (a *Assembler) Journal() *Journal {
	return NewJournal(a.counts)
}

// Step folds the next block set into the run and returns the swizzled
// deposit results to compare against the set's expected output:
//
//  1. block i is ORed into logical stream i at bit offset width·j;
//  2. each stream, shifted right by the consumed bit count, is deposited
//     under the selector;
//  3. the consumed bit count advances by popcount(selector);
//  4. the K deposit results are swizzled.
//
// The set is validated before any state changes. A selector that would
// consume more bits than have been appended fails with *BitBudgetError.
func (a *Assembler) Step(set BlockSet) (SwizzleGroup, error) {
	j := a.appended
	if len(set.Sources) != a.streams {
		return nil, &ShapeError{Set: j, Want: a.streams, Got: len(set.Sources)}
	}
	if set.Selector == nil {
		return nil, fmt.Errorf("%w: set %d has no selector block", ErrShapeMismatch, j)
	}
	if set.Selector.Sign() < 0 || set.Selector.BitLen() > a.width {
		return nil, fmt.Errorf("%w: set %d selector does not fit in %d bits", ErrMaskTooWide, j, a.width)
	}
	for i, b := range set.Sources {
		if b == nil || b.Sign() < 0 || b.BitLen() > a.width {
			return nil, fmt.Errorf("%w: set %d stream %d source block does not fit in %d bits",
				ErrMalformedTrace, j, i, a.width)
		}
	}
	selected := popcount(set.Selector)
	if available := a.width * (j + 1); a.consumed+selected > available {
		return nil, &BitBudgetError{Set: j, Consumed: a.consumed + selected, Available: available}
	}

	offset := uint(a.width * j)
	for i, b := range set.Sources {
		a.scratch.Lsh(b, offset)
		a.logical[i].Or(a.logical[i], a.scratch)
	}
	a.appended++

	deposited := make([]*big.Int, a.streams)
	for i, stream := range a.logical {
		a.scratch.Rsh(stream, uint(a.consumed))
		d, err := Deposit(set.Selector, a.scratch, a.width)
		if err != nil {
			return nil, fmt.Errorf("set %d stream %d: %w", j, i, err)
		}
		deposited[i] = d
	}

	a.consumed += selected
	a.counts = append(a.counts, uint32(selected))

	return Swizzle(deposited, a.width)
}

// AssembleAndConsume runs a fresh Assembler over sets in order and returns
// one SwizzleGroup per set.
func AssembleAndConsume(sets []BlockSet, width, streams int) ([]SwizzleGroup, error) {
	a, err := NewAssembler(width, streams)
	if err != nil {
		return nil, err
	}
	groups := make([]SwizzleGroup, 0, len(sets))
	for _, set := range sets {
		g, err := a.Step(set)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}
