//go:build avogen
// +build avogen

package main

import (
	. "github.com/mmcloughlin/avo/build"
)

// This file generates the single-word parallel bit deposit kernel.
// PDEPQ takes its operands as (mask, src, dst): the k-th set bit of mask
// receives bit k of src and every other bit of dst is cleared.
//
// The portable equivalent is depositWordScalar:
//
//	for m := mask; m != 0; m &= m - 1 {
//		if src&1 != 0 {
//			out |= m & -m
//		}
//		src >>= 1
//	}

func genDepositKernel() {
	TEXT("pdepBMI2", NOSPLIT, "func(src, mask uint64) uint64")
	Doc("pdepBMI2 deposits the low bits of src into the set positions of mask.")

	src := Load(Param("src"), GP64())
	mask := Load(Param("mask"), GP64())

	PDEPQ(mask, src, src)

	Store(src, ReturnIndex(0))
	RET()
}
