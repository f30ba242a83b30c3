package pdep

import (
	"encoding/binary"
	"math/big"
	"math/bits"
)

// wordsOf returns the low n little-endian 64-bit words of x.
// Bits of x at or above 64*n are dropped. x must not be negative.
func wordsOf(x *big.Int, n int) []uint64 {
	words := make([]uint64, n)
	if x.Sign() == 0 {
		return words
	}
	// big.Word is 32 bits wide on 32-bit platforms, so two of them fill one uint64.
	perWord := 64 / bits.UintSize
	for i, w := range x.Bits() {
		idx := i / perWord
		if idx >= n {
			break
		}
		words[idx] |= uint64(w) << (bits.UintSize * (i % perWord))
	}
	return words
}

// fromWords builds a non-negative integer from little-endian 64-bit words.
func fromWords(words []uint64) *big.Int {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint64(buf[len(buf)-8*(i+1):], w)
	}
	return new(big.Int).SetBytes(buf)
}

// extractWord returns the 64 bits of words starting at bit offset off.
// Bits past the end of words read as zero.
func extractWord(words []uint64, off int) uint64 {
	i, shift := off>>6, uint(off&63)
	var lo, hi uint64
	if i < len(words) {
		lo = words[i] >> shift
	}
	if shift != 0 && i+1 < len(words) {
		hi = words[i+1] << (64 - shift)
	}
	return lo | hi
}

// popcount returns the number of set bits in a non-negative x.
func popcount(x *big.Int) int {
	n := 0
	for _, w := range x.Bits() {
		n += bits.OnesCount(uint(w))
	}
	return n
}

// lowMask returns 2^n - 1.
func lowMask(n int) *big.Int {
	one := big.NewInt(1)
	m := new(big.Int).Lsh(one, uint(n))
	return m.Sub(m, one)
}
