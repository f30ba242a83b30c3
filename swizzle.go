package pdep

import (
	"fmt"
	"math/big"
)

// SwizzleGroup holds the K output words produced from K per-stream deposit
// results, in the kernel's interleaved layout.
type SwizzleGroup []*big.Int

// FieldWidth returns the swizzle field width for K streams of width-bit
// blocks. It fails with ErrInvalidSwizzleShape unless K evenly divides width.
func FieldWidth(width, streams int) (int, error) {
	if streams <= 0 || width <= 0 {
		return 0, fmt.Errorf("%w: %d streams of %d-bit blocks", ErrInvalidSwizzleShape, streams, width)
	}
	if width%streams != 0 {
		return 0, fmt.Errorf("%w: %d streams do not divide block width %d", ErrInvalidSwizzleShape, streams, width)
	}
	return width / streams, nil
}

// Swizzle transposes K rows of width bits at field granularity. Each row is
// split into K fields of width/K bits, field 0 being the least significant;
// field i of output word j is field j of row i.
//
//	rows:   r0 = [a3 a2 a1 a0]   out: w0 = [d0 c0 b0 a0]
//	        r1 = [b3 b2 b1 b0]        w1 = [d1 c1 b1 a1]
//	        r2 = [c3 c2 c1 c0]        w2 = [d2 c2 b2 a2]
//	        r3 = [d3 d2 d1 d0]        w3 = [d3 c3 b3 a3]
//
// The rows are not modified.
func Swizzle(rows []*big.Int, width int) (SwizzleGroup, error) {
	k := len(rows)
	fw, err := FieldWidth(width, k)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if row.Sign() < 0 || row.BitLen() > width {
			return nil, fmt.Errorf("%w: row %d does not fit in %d bits", ErrInvalidSwizzleShape, i, width)
		}
	}

	fieldMask := lowMask(fw)
	out := make(SwizzleGroup, k)
	for j := range out {
		out[j] = new(big.Int)
	}
	field := new(big.Int)
	for i, row := range rows {
		for j := range k {
			field.Rsh(row, uint(fw*j))
			field.And(field, fieldMask)
			field.Lsh(field, uint(fw*i))
			out[j].Or(out[j], field)
		}
	}
	return out, nil
}

// Unswizzle recovers the K rows a Swizzle call produced words from.
// The square field transpose is its own inverse.
func Unswizzle(words []*big.Int, width int) ([]*big.Int, error) {
	return Swizzle(words, width)
}
