// Package wavg accumulates the per-pixel statistics of the maximisation step
// of a maximum-likelihood orientation refinement.
//
// For every orientation group of a batch the kernel projects the reference
// once per pixel, then walks the translation hypotheses of that group in
// order. Hypotheses whose weight falls below the significance threshold are
// skipped. The remaining ones contribute, with weight w = weight/WeightNorm,
//
//	Diff2   += w * |ref - shift(img)|²
//	CrossXA += w * Re(ref * conj(shift(img)))
//	AutoAA  += w * |ref|²
//
// where ref has already been multiplied by the pixel's CTF value or by the
// global particle scale. Partial sums of one pixel are committed to the
// shared Accumulators with an atomic add, so groups may run in any order.
package wavg

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cryowavg/pkg/addressing"
	"cryowavg/pkg/projector"
)

// Params are fixed for one kernel. Scalars are converted to the kernel's
// precision once in NewKernel.
type Params struct {
	// ImageSize is the number of pixels processed per group. Zero means the
	// full layout.
	ImageSize int

	// SignificanceWeight is the smallest weight that still contributes.
	// A weight equal to it is included.
	SignificanceWeight float64

	// WeightNorm divides every contributing weight.
	WeightNorm float64

	// PartScale multiplies the reference when CTF is false.
	PartScale float64

	// CTF selects per-pixel CTF correction instead of PartScale.
	CTF bool

	// Variant selects the projection strategy.
	Variant Variant

	// BlockSize is the number of pixel lanes per pass. Zero selects
	// DefaultBlockSize.
	BlockSize int

	// Workers bounds how many orientation groups run concurrently. Zero
	// means GOMAXPROCS.
	Workers int

	// LaneWorkers splits the lanes of one group across goroutines. Zero or
	// one processes all lanes of a group on a single goroutine.
	LaneWorkers int

	// RotationTolerance, when positive, makes Run reject batches whose
	// rotation matrices are not orthonormal with determinant +1 within it.
	RotationTolerance float64
}

// Kernel runs the weighted-average accumulation at precision T.
type Kernel[T Float] struct {
	params    Params
	layout    addressing.Layout
	imageSize int

	significance T
	weightNorm   T
	partScale    T

	proj   projector.Projector
	shift  projector.Shifter
	logger *slog.Logger
}

// NewKernel validates the configuration and returns a kernel for it.
func NewKernel[T Float](params Params, layout addressing.Layout, proj projector.Projector, shift projector.Shifter) (*Kernel[T], error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParam, err)
	}
	if proj == nil || shift == nil {
		return nil, fmt.Errorf("%w: projector and shifter are required", ErrBadParam)
	}
	switch params.Variant {
	case Ref2D, Ref3D:
		if layout.Volumetric() {
			return nil, fmt.Errorf("%w: %s expects planar data, layout has depth %d", ErrVariant, params.Variant, layout.ImgZ)
		}
	case Data3D:
		if !layout.Volumetric() {
			return nil, fmt.Errorf("%w: data3d expects a volumetric layout", ErrVariant)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrVariant, params.Variant)
	}
	if !(params.WeightNorm > 0) || math.IsInf(params.WeightNorm, 0) {
		return nil, fmt.Errorf("%w: weight norm %v must be positive and finite", ErrBadParam, params.WeightNorm)
	}
	if math.IsNaN(params.SignificanceWeight) {
		return nil, fmt.Errorf("%w: significance weight is NaN", ErrBadParam)
	}
	if !(params.RotationTolerance >= 0) {
		return nil, fmt.Errorf("%w: rotation tolerance %v", ErrBadParam, params.RotationTolerance)
	}

	if params.ImageSize == 0 {
		params.ImageSize = layout.Size()
	}
	if params.ImageSize < 0 || params.ImageSize > layout.Size() {
		return nil, fmt.Errorf("%w: image size %d outside layout of %d pixels", ErrBadParam, params.ImageSize, layout.Size())
	}
	if params.BlockSize <= 0 {
		params.BlockSize = DefaultBlockSize()
	}
	if params.Workers <= 0 {
		params.Workers = runtime.GOMAXPROCS(0)
	}
	if params.LaneWorkers <= 0 {
		params.LaneWorkers = 1
	}
	if params.LaneWorkers > params.BlockSize {
		params.LaneWorkers = params.BlockSize
	}

	return &Kernel[T]{
		params:       params,
		layout:       layout,
		imageSize:    params.ImageSize,
		significance: T(params.SignificanceWeight),
		weightNorm:   T(params.WeightNorm),
		partScale:    T(params.PartScale),
		proj:         proj,
		shift:        shift,
		logger:       slog.Default(),
	}, nil
}

// SetLogger replaces the logger used for per-invocation debug records.
func (k *Kernel[T]) SetLogger(l *slog.Logger) {
	if l != nil {
		k.logger = l
	}
}

// Params returns the effective parameters after defaults were applied.
func (k *Kernel[T]) Params() Params {
	return k.params
}

// Run accumulates the contributions of every orientation group in b into
// out. out must be zeroed by the caller before the first invocation and is
// only added to. Buffer shapes are checked before any work starts; once
// processing begins Run cannot fail.
func (k *Kernel[T]) Run(b *Batch[T], out *Accumulators[T]) error {
	if err := b.validate(k.params, k.imageSize); err != nil {
		return err
	}
	if err := out.validate(k.imageSize); err != nil {
		return err
	}
	if k.params.RotationTolerance > 0 {
		if err := b.checkRotations(k.params.RotationTolerance); err != nil {
			return err
		}
	}

	groups, nt := b.Groups(), b.Translations()
	if groups == 0 || nt == 0 {
		k.logger.Debug("wavg: nothing to accumulate", "groups", groups, "translations", nt)
		return nil
	}

	start := time.Now()
	v := k.bind(b)

	var g errgroup.Group
	g.SetLimit(k.params.Workers)
	for group := 0; group < groups; group++ {
		group := group
		g.Go(func() error {
			k.processGroup(v, b, out, group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	k.logger.Debug("wavg: invocation complete",
		"variant", k.params.Variant.String(),
		"groups", groups,
		"translations", nt,
		"pixels", k.imageSize,
		"passes", passes(k.imageSize, k.params.BlockSize),
		"elapsed", time.Since(start))
	return nil
}

// groupState is shared by all lanes of one orientation group. It is fully
// written before any lane starts and read-only afterwards.
type groupState[T Float] struct {
	v       variant[T]
	b       *Batch[T]
	out     *Accumulators[T]
	e       [9]float64
	weights []T
}

func (k *Kernel[T]) processGroup(v variant[T], b *Batch[T], out *Accumulators[T], group int) {
	nt := b.Translations()
	gs := &groupState[T]{
		v:       v,
		b:       b,
		out:     out,
		weights: b.Weights[group*nt : (group+1)*nt],
	}
	for i := range gs.e {
		gs.e[i] = float64(b.Rotations[group*9+i])
	}

	block := k.params.BlockSize
	if k.params.LaneWorkers <= 1 {
		k.runLanes(gs, 0, block)
		return
	}

	// Starting the lane goroutines after gs is filled is the group barrier.
	var wg sync.WaitGroup
	chunk := (block + k.params.LaneWorkers - 1) / k.params.LaneWorkers
	for first := 0; first < block; first += chunk {
		first := first
		last := min(first+chunk, block)
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.runLanes(gs, first, last)
		}()
	}
	wg.Wait()
}

// runLanes processes lanes [first, last) of every pass.
func (k *Kernel[T]) runLanes(gs *groupState[T], first, last int) {
	block := k.params.BlockSize
	for pass := 0; pass < passes(k.imageSize, block); pass++ {
		base := pass * block
		for lane := first; lane < last; lane++ {
			k.processPixel(gs, base+lane)
		}
	}
}

func (k *Kernel[T]) processPixel(gs *groupState[T], pixel int) {
	// The last pass may run past the image.
	if pixel >= k.imageSize {
		return
	}

	c := k.layout.Resolve(pixel)
	refR, refI := gs.v.reference(c, &gs.e)

	scale := k.partScale
	if k.params.CTF {
		scale = gs.b.CTF[pixel]
	}
	refR *= scale
	refI *= scale

	imgR := gs.b.ImgReal[pixel]
	imgI := gs.b.ImgImag[pixel]

	var diff2, sumXA, sumA2 T
	for t, weight := range gs.weights {
		if weight < k.significance {
			continue
		}
		w := weight / k.weightNorm

		transR, transI := gs.v.translate(c, t, imgR, imgI)
		diffR := refR - transR
		diffI := refI - transI

		diff2 += w * (diffR*diffR + diffI*diffI)
		sumXA += w * (refR*transR + refI*transI)
		sumA2 += w * (refR*refR + refI*refI)
	}

	gs.out.Add(pixel, diff2, sumXA, sumA2)
}
