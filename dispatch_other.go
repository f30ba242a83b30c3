//go:build !amd64 || noasm

package pdep

func init() {
	setScalarMode()
}
