// Package synthetic generates self-consistent weighted-average batches: a
// reference made of Gaussian blobs, an observation of it at a known
// orientation and offset, and posterior weights peaked around that truth.
package synthetic

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"cryowavg/internal/models"
	"cryowavg/pkg/addressing"
	"cryowavg/pkg/projector"
	"cryowavg/pkg/rotation"
	"cryowavg/pkg/spectrum"
	"cryowavg/pkg/wavg"
)

// Options control batch generation.
type Options struct {
	Variant       wavg.Variant
	Interpolation projector.Interpolation

	// BoxSize is the real-space edge length; MaxRadius 0 means BoxSize/2-1
	BoxSize   int
	MaxRadius int

	Orientations int
	AngularStep  float64

	OffsetRange float64
	OffsetStep  float64

	Noise               float64
	SignificantFraction float64

	CTF       bool
	PartScale float64

	Seed uint64
}

// Dataset is a generated batch in float64 together with the collaborators
// needed to run the kernel on it.
type Dataset struct {
	Options Options

	Layout    addressing.Layout
	Reference *models.FourierVolume
	Projector *projector.FourierProjector
	Shifter   projector.PhaseShifter

	Rotations    [][9]float64
	Translations [][3]float64

	// Weights is group-major, WeightNorm is their sum
	Weights            []float64
	WeightNorm         float64
	SignificanceWeight float64

	ImgReal []float64
	ImgImag []float64
	CTF     []float64

	TrueGroup       int
	TrueTranslation int
}

// Generate builds a dataset from opts.
func Generate(opts Options) (*Dataset, error) {
	if opts.BoxSize < 4 || opts.BoxSize%2 != 0 {
		return nil, fmt.Errorf("box size %d must be even and at least 4", opts.BoxSize)
	}
	if opts.Orientations <= 0 {
		return nil, fmt.Errorf("need at least one orientation")
	}
	if opts.OffsetStep <= 0 || opts.OffsetRange < 0 {
		return nil, fmt.Errorf("invalid translation grid range %g step %g", opts.OffsetRange, opts.OffsetStep)
	}
	if opts.SignificantFraction <= 0 || opts.SignificantFraction > 1 {
		return nil, fmt.Errorf("significant fraction %g outside (0, 1]", opts.SignificantFraction)
	}
	if opts.MaxRadius == 0 {
		opts.MaxRadius = opts.BoxSize/2 - 1
	}

	r := rand.New(rand.NewSource(opts.Seed))
	d := &Dataset{Options: opts, Shifter: projector.NewPhaseShifter(opts.BoxSize)}

	d.Layout = addressing.Layout{ImgX: opts.BoxSize/2 + 1, ImgY: opts.BoxSize, MaxR: opts.MaxRadius}
	if opts.Variant == wavg.Data3D {
		d.Layout.ImgZ = opts.BoxSize
	}

	if err := d.buildReference(r); err != nil {
		return nil, err
	}

	trueAngles := [3]float64{360 * r.Float64(), 30 + 120*r.Float64(), 360 * r.Float64()}
	matrices := d.buildRotations(trueAngles)
	d.buildTranslations()
	d.TrueTranslation = r.Intn(len(d.Translations))

	d.buildObservation(opts.Seed + 1)
	d.buildWeights(matrices)

	return d, nil
}

// buildReference places a few Gaussian blobs in the box and transforms them.
func (d *Dataset) buildReference(r *rand.Rand) error {
	n := d.Options.BoxSize
	dims := 2
	if d.Options.Variant != wavg.Ref2D {
		dims = 3
	}
	depth := 1
	if dims == 3 {
		depth = n
	}

	data := make([]float64, n*n*depth)
	sigma := float64(n) / 10
	for blob := 0; blob < 5; blob++ {
		cx := float64(n)/4 + r.Float64()*float64(n)/2
		cy := float64(n)/4 + r.Float64()*float64(n)/2
		cz := 0.0
		if dims == 3 {
			cz = float64(n)/4 + r.Float64()*float64(n)/2
		}
		amp := 0.5 + r.Float64()
		for z := 0; z < depth; z++ {
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					dx, dy, dz := float64(x)-cx, float64(y)-cy, float64(z)-cz
					data[(z*n+y)*n+x] += amp * math.Exp(-(dx*dx+dy*dy+dz*dz)/(2*sigma*sigma))
				}
			}
		}
	}

	var err error
	if dims == 2 {
		d.Reference, err = spectrum.HalfSpace2D(data, n)
	} else {
		d.Reference, err = spectrum.HalfSpace3D(data, n)
	}
	if err != nil {
		return fmt.Errorf("reference transform: %w", err)
	}

	// Normalise so the DC term is one.
	if dc := real(d.Reference.At(0, 0, 0)); dc != 0 {
		for i := range d.Reference.Data {
			d.Reference.Data[i] /= complex(dc, 0)
		}
	}

	d.Projector, err = projector.NewFourierProjector(d.Reference, d.Options.MaxRadius, d.Options.Interpolation)
	return err
}

// buildRotations spaces orientations AngularStep apart around the true one,
// which lands at group Orientations/2.
func (d *Dataset) buildRotations(truth [3]float64) []*mat.Dense {
	n := d.Options.Orientations
	d.TrueGroup = n / 2
	matrices := make([]*mat.Dense, n)
	d.Rotations = make([][9]float64, n)
	for i := 0; i < n; i++ {
		offset := float64(i-d.TrueGroup) * d.Options.AngularStep
		if d.Options.Variant == wavg.Ref2D {
			matrices[i] = rotation.InPlane(truth[2] + offset)
		} else {
			matrices[i] = rotation.Euler(truth[0]+offset, truth[1], truth[2])
		}
		d.Rotations[i] = rotation.Flatten(matrices[i])
	}
	return matrices
}

func (d *Dataset) buildTranslations() {
	steps := int(math.Floor(d.Options.OffsetRange/d.Options.OffsetStep + 1e-9))
	zsteps := 0
	if d.Options.Variant == wavg.Data3D {
		zsteps = steps
	}
	for k := -zsteps; k <= zsteps; k++ {
		for j := -steps; j <= steps; j++ {
			for i := -steps; i <= steps; i++ {
				d.Translations = append(d.Translations, [3]float64{
					float64(i) * d.Options.OffsetStep,
					float64(j) * d.Options.OffsetStep,
					float64(k) * d.Options.OffsetStep,
				})
			}
		}
	}
}

// buildObservation projects the reference at the true orientation, applies
// the radiometric scale, moves it by minus the true offset and adds noise.
func (d *Dataset) buildObservation(seed uint64) {
	size := d.Layout.Size()
	d.ImgReal = make([]float64, size)
	d.ImgImag = make([]float64, size)
	if d.Options.CTF {
		d.CTF = make([]float64, size)
	}

	noise := distuv.Normal{Mu: 0, Sigma: d.Options.Noise, Src: rand.NewSource(seed)}
	e := d.Rotations[d.TrueGroup]
	shift := d.Translations[d.TrueTranslation]
	norm := float64(d.Options.BoxSize / 2)

	for p := 0; p < size; p++ {
		c := d.Layout.Resolve(p)
		re, im := Project(d.Projector, d.Options.Variant, c, e)

		scale := d.Options.PartScale
		if d.Options.CTF {
			k2 := float64(c.X*c.X+c.Y*c.Y+c.Z*c.Z) / (norm * norm)
			d.CTF[p] = math.Cos(6 * k2)
			scale = d.CTF[p]
		}
		re *= scale
		im *= scale

		if d.Options.Variant == wavg.Data3D {
			re, im = d.Shifter.Shift3D(c.X, c.Y, c.Z, -shift[0], -shift[1], -shift[2], re, im)
		} else {
			re, im = d.Shifter.Shift2D(c.X, c.Y, -shift[0], -shift[1], re, im)
		}

		if d.Options.Noise > 0 {
			re += noise.Rand()
			im += noise.Rand()
		}
		d.ImgReal[p] = re
		d.ImgImag[p] = im
	}
}

// buildWeights assigns Gaussian posterior weights in angular and offset
// distance from the truth, then picks the significance threshold that keeps
// SignificantFraction of the total mass.
func (d *Dataset) buildWeights(matrices []*mat.Dense) {
	nt := len(d.Translations)
	sigmaAngle := math.Max(d.Options.AngularStep, 1)
	sigmaOffset := math.Max(d.Options.OffsetStep, 0.5)
	truthShift := d.Translations[d.TrueTranslation]

	d.Weights = make([]float64, len(matrices)*nt)
	for g, m := range matrices {
		da := rotation.Distance(m, matrices[d.TrueGroup])
		for t, shift := range d.Translations {
			dx := shift[0] - truthShift[0]
			dy := shift[1] - truthShift[1]
			dz := shift[2] - truthShift[2]
			score := da*da/(2*sigmaAngle*sigmaAngle) + (dx*dx+dy*dy+dz*dz)/(2*sigmaOffset*sigmaOffset)
			d.Weights[g*nt+t] = math.Exp(-score)
		}
	}
	d.WeightNorm = floats.Sum(d.Weights)
	d.SignificanceWeight = SignificanceThreshold(d.Weights, d.Options.SignificantFraction)
}

// SignificanceThreshold returns the smallest weight among the largest
// weights whose sum first reaches fraction of the total.
func SignificanceThreshold(weights []float64, fraction float64) float64 {
	if len(weights) == 0 {
		return 0
	}
	sorted := append([]float64(nil), weights...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	cum := make([]float64, len(sorted))
	floats.CumSum(cum, sorted)
	target := fraction * cum[len(cum)-1]
	for i, c := range cum {
		if c >= target {
			return sorted[i]
		}
	}
	return sorted[len(sorted)-1]
}

// Project dispatches a reference query on the variant's projector shape.
func Project(p projector.Projector, v wavg.Variant, c addressing.Coord, e [9]float64) (float64, float64) {
	switch v {
	case wavg.Data3D:
		return p.ProjectVolume(c.X, c.Y, c.Z, e)
	case wavg.Ref3D:
		return p.Project3D(c.X, c.Y, e[0], e[1], e[3], e[4], e[6], e[7])
	default:
		return p.Project2D(c.X, c.Y, e[0], e[1], e[3], e[4])
	}
}

// KernelParams returns the invocation parameters implied by the dataset.
// Scheduling fields are left at zero for the caller to set.
func (d *Dataset) KernelParams() wavg.Params {
	return wavg.Params{
		ImageSize:          d.Layout.Size(),
		SignificanceWeight: d.SignificanceWeight,
		WeightNorm:         d.WeightNorm,
		PartScale:          d.Options.PartScale,
		CTF:                d.Options.CTF,
		Variant:            d.Options.Variant,
	}
}

// ToBatch converts the dataset to a kernel batch at precision T.
func ToBatch[T wavg.Float](d *Dataset) *wavg.Batch[T] {
	b := &wavg.Batch[T]{
		Rotations: make([]T, 0, 9*len(d.Rotations)),
		TransX:    make([]T, len(d.Translations)),
		TransY:    make([]T, len(d.Translations)),
		TransZ:    make([]T, len(d.Translations)),
		Weights:   convert[T](d.Weights),
		ImgReal:   convert[T](d.ImgReal),
		ImgImag:   convert[T](d.ImgImag),
		CTF:       convert[T](d.CTF),
	}
	for _, e := range d.Rotations {
		for _, v := range e {
			b.Rotations = append(b.Rotations, T(v))
		}
	}
	for i, t := range d.Translations {
		b.TransX[i], b.TransY[i], b.TransZ[i] = T(t[0]), T(t[1]), T(t[2])
	}
	return b
}

func convert[T wavg.Float](in []float64) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(v)
	}
	return out
}
