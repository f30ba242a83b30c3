package pdep

import (
	"os"
	"strconv"
)

// DispatchLevel identifies the word kernel Deposit runs on.
type DispatchLevel int

const (
	// DispatchScalar is the portable Go loop.
	DispatchScalar DispatchLevel = iota

	// DispatchBMI2 uses the x86-64 PDEPQ instruction.
	DispatchBMI2
)

// String returns a human-readable name for the dispatch level.
func (d DispatchLevel) String() string {
	switch d {
	case DispatchScalar:
		return "scalar"
	case DispatchBMI2:
		return "bmi2"
	default:
		return "unknown"
	}
}

// currentLevel is set by init() in dispatch_*.go files.
var currentLevel DispatchLevel

// CurrentLevel returns the word kernel selected for this process.
func CurrentLevel() DispatchLevel {
	return currentLevel
}

// NoAsmEnv reports whether PDEP_NO_ASM asks for the scalar kernel.
// Any non-empty value counts as true unless it parses as a false bool.
func NoAsmEnv() bool {
	val := os.Getenv("PDEP_NO_ASM")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

func setScalarMode() {
	depositWord = depositWordScalar
	currentLevel = DispatchScalar
}
