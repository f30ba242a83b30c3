// Package pdep is a bit-exact reference for the parallel-bit-deposit and
// swizzle transform used by SIMD text-processing kernels that operate on
// transposed bit streams.
//
// A kernel capture (trace) lists, per block set, one physical block for each
// input stream, a selector mask ("PDEP marker stream") and the kernel's
// swizzled output. The package rebuilds the logical input streams from the
// physical blocks, deposits the unconsumed source bits into the positions the
// selector marks, swizzles the per-stream results into the kernel's output
// layout, and compares them against the capture. All operations are
// deterministic; the package maintains no global mutable state besides the
// word-kernel selection made at init.
package pdep

import (
	"fmt"
	"math/big"
	"math/bits"
)

// depositWord scatters the low bits of src into the set positions of mask,
// lowest mask bit first. init swaps in the BMI2 PDEPQ kernel when available.
var depositWord func(src, mask uint64) uint64 = depositWordScalar

// depositWordScalar is the portable reference for a single 64-bit word.
func depositWordScalar(src, mask uint64) uint64 {
	var out uint64
	for m := mask; m != 0; m &= m - 1 {
		if src&1 != 0 {
			out |= m & -m
		}
		src >>= 1
	}
	return out
}

// Deposit returns the parallel bit deposit of source under mask for a block
// of the given width: walking mask from its least significant bit upwards,
// the k-th set bit of mask receives bit k of source, and every other output
// bit is zero.
//
// source may be wider than width (it is usually the unconsumed tail of a
// logical stream); only its low popcount(mask) bits are consulted. Neither
// operand is modified. It fails with ErrMaskTooWide if mask has bits at or
// above width.
func Deposit(mask, source *big.Int, width int) (*big.Int, error) {
	if width <= 0 {
		return nil, fmt.Errorf("pdep: invalid block width %d", width)
	}
	if mask.Sign() < 0 || source.Sign() < 0 {
		return nil, fmt.Errorf("pdep: negative deposit operand")
	}
	if mask.BitLen() > width {
		return nil, fmt.Errorf("%w: mask has %d significant bits, block width is %d",
			ErrMaskTooWide, mask.BitLen(), width)
	}

	numWords := (width + 63) / 64
	maskWords := wordsOf(mask, numWords)
	need := popcount(mask)
	srcWords := wordsOf(source, (need+63)/64+1)

	out := make([]uint64, numWords)
	cursor := 0
	for i, m := range maskWords {
		if m == 0 {
			continue
		}
		out[i] = depositWord(extractWord(srcWords, cursor), m)
		cursor += bits.OnesCount64(m)
	}
	return fromWords(out), nil
}
