//go:build avogen
// +build avogen

package main

import (
	"flag"

	. "github.com/mmcloughlin/avo/build"
)

// main emits the BMI2 word kernel used by Deposit.
func main() {
	flag.Parse()

	Package("github.com/Akron/pdep-go")
	ConstraintExpr("amd64")
	ConstraintExpr("!noasm")

	genDepositKernel()

	Generate()
}
