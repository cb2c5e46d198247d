package wavg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"cryowavg/pkg/rotation"
)

// Float is the accumulation precision of one kernel instantiation.
type Float interface {
	float32 | float64
}

// Batch holds the read-only inputs of one invocation.
//
// All orientation groups of a batch share the observed image, the CTF table
// and the translation hypotheses. Weights are stored group-major:
// Weights[g*Translations()+t].
type Batch[T Float] struct {
	// Rotations holds 9 row-major matrix entries per orientation group
	Rotations []T

	// TransX, TransY and TransZ are the translation hypotheses in pixels.
	// TransZ is only read for volumetric data.
	TransX []T
	TransY []T
	TransZ []T

	// Weights is the group x translation weight table
	Weights []T

	// ImgReal and ImgImag are the observed Fourier samples in layout order
	ImgReal []T
	ImgImag []T

	// CTF is the per-pixel contrast transfer table, read only when the
	// kernel was configured for CTF correction
	CTF []T
}

// Groups returns the number of orientation groups.
func (b *Batch[T]) Groups() int {
	return len(b.Rotations) / 9
}

// Translations returns the number of translation hypotheses.
func (b *Batch[T]) Translations() int {
	return len(b.TransX)
}

// Slice returns the batch restricted to orientation groups [first, last).
// The shared image, CTF and translation buffers are not copied.
func (b *Batch[T]) Slice(first, last int) *Batch[T] {
	nt := b.Translations()
	sub := *b
	sub.Rotations = b.Rotations[first*9 : last*9]
	sub.Weights = b.Weights[first*nt : last*nt]
	return &sub
}

// checkRotations rejects groups whose matrix is not a proper rotation
// within tol.
func (b *Batch[T]) checkRotations(tol float64) error {
	m := mat.NewDense(3, 3, nil)
	for g := 0; g < b.Groups(); g++ {
		for i := 0; i < 9; i++ {
			m.Set(i/3, i%3, float64(b.Rotations[g*9+i]))
		}
		if !rotation.IsRotation(m, tol) {
			return fmt.Errorf("%w: rotation of group %d is not orthonormal within %g", ErrBadParam, g, tol)
		}
	}
	return nil
}

// validate checks buffer lengths against the kernel configuration.
func (b *Batch[T]) validate(p Params, imageSize int) error {
	if len(b.Rotations)%9 != 0 {
		return fmt.Errorf("%w: %d rotation entries is not a multiple of 9", ErrShape, len(b.Rotations))
	}
	nt := b.Translations()
	if len(b.TransY) != nt {
		return fmt.Errorf("%w: %d x translations but %d y translations", ErrShape, nt, len(b.TransY))
	}
	if p.Variant == Data3D && len(b.TransZ) != nt {
		return fmt.Errorf("%w: volumetric data needs %d z translations, got %d", ErrVariant, nt, len(b.TransZ))
	}
	if len(b.Weights) != b.Groups()*nt {
		return fmt.Errorf("%w: weight table has %d entries, want %d groups x %d translations",
			ErrShape, len(b.Weights), b.Groups(), nt)
	}
	if len(b.ImgReal) < imageSize || len(b.ImgImag) < imageSize {
		return fmt.Errorf("%w: observed image has %d/%d samples, want %d",
			ErrShape, len(b.ImgReal), len(b.ImgImag), imageSize)
	}
	if p.CTF && len(b.CTF) < imageSize {
		return fmt.Errorf("%w: CTF table has %d samples, want %d", ErrShape, len(b.CTF), imageSize)
	}
	return nil
}
