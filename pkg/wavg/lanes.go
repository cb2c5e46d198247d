package wavg

import "golang.org/x/sys/cpu"

// DefaultBlockSize returns the number of pixel lanes processed per pass when
// Params.BlockSize is unset. Wider vector units get wider passes so one pass
// covers more of a row.
func DefaultBlockSize() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 512
	case cpu.X86.HasAVX2, cpu.ARM64.HasSVE:
		return 256
	default:
		return 128
	}
}

// passes returns how many passes of block lanes cover n pixels.
func passes(n, block int) int {
	return (n + block - 1) / block
}
