//go:build amd64 && !noasm

package pdep

import "golang.org/x/sys/cpu"

//go:generate go run -tags avogen ./internal/avo -out pdep_amd64.s -stubs pdep_stub_amd64.go

func init() {
	initDispatch()
}

// initDispatch selects the PDEPQ kernel when the CPU has BMI2 and the
// environment does not opt out.
func initDispatch() {
	if NoAsmEnv() || !cpu.X86.HasBMI2 {
		setScalarMode()
		return
	}
	depositWord = pdepBMI2
	currentLevel = DispatchBMI2
}
