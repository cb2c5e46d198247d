package wavg

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"
)

// Accumulators are the three per-pixel output arrays shared by every
// orientation group of an invocation. During Run they are only mutated
// through Add; read them once Run has returned.
type Accumulators[T Float] struct {
	// Diff2 is the weighted sum of squared residuals
	Diff2 []T

	// CrossXA is the weighted cross-correlation between reference and
	// translated observation
	CrossXA []T

	// AutoAA is the weighted reference power
	AutoAA []T
}

// NewAccumulators allocates zeroed accumulators for n pixels.
func NewAccumulators[T Float](n int) *Accumulators[T] {
	return &Accumulators[T]{
		Diff2:   make([]T, n),
		CrossXA: make([]T, n),
		AutoAA:  make([]T, n),
	}
}

// Len returns the number of pixels covered.
func (a *Accumulators[T]) Len() int {
	return len(a.Diff2)
}

// Add commits one pixel's partial sums. Concurrent calls for the same pixel
// are safe; the result does not depend on their interleaving beyond
// floating-point rounding.
func (a *Accumulators[T]) Add(pixel int, diff2, xa, aa T) {
	atomicAdd(&a.CrossXA[pixel], xa)
	atomicAdd(&a.AutoAA[pixel], aa)
	atomicAdd(&a.Diff2[pixel], diff2)
}

// Merge adds other into a, pixel by pixel. It may run concurrently with Add
// on the same accumulators.
func (a *Accumulators[T]) Merge(other *Accumulators[T]) error {
	if other.Len() != a.Len() {
		return fmt.Errorf("%w: merging %d pixels into %d", ErrShape, other.Len(), a.Len())
	}
	for i := range other.Diff2 {
		a.Add(i, other.Diff2[i], other.CrossXA[i], other.AutoAA[i])
	}
	return nil
}

// Reset zeroes all three arrays. Not safe to call during Run.
func (a *Accumulators[T]) Reset() {
	clear(a.Diff2)
	clear(a.CrossXA)
	clear(a.AutoAA)
}

func (a *Accumulators[T]) validate(imageSize int) error {
	if len(a.Diff2) < imageSize || len(a.CrossXA) < imageSize || len(a.AutoAA) < imageSize {
		return fmt.Errorf("%w: accumulators hold %d/%d/%d pixels, want %d",
			ErrShape, len(a.Diff2), len(a.CrossXA), len(a.AutoAA), imageSize)
	}
	return nil
}

// atomicAdd adds v to *p with a compare-and-swap loop on the bit pattern.
func atomicAdd[T Float](p *T, v T) {
	switch p := any(p).(type) {
	case *float32:
		addr := (*uint32)(unsafe.Pointer(p))
		for {
			old := atomic.LoadUint32(addr)
			sum := math.Float32bits(math.Float32frombits(old) + float32(v))
			if atomic.CompareAndSwapUint32(addr, old, sum) {
				return
			}
		}
	case *float64:
		addr := (*uint64)(unsafe.Pointer(p))
		for {
			old := atomic.LoadUint64(addr)
			sum := math.Float64bits(math.Float64frombits(old) + float64(v))
			if atomic.CompareAndSwapUint64(addr, old, sum) {
				return
			}
		}
	}
}
