package wavg

import (
	"fmt"

	"cryowavg/pkg/addressing"
	"cryowavg/pkg/projector"
)

// Variant selects how the reference is projected and how translations are
// applied.
type Variant int

const (
	// Ref2D projects a planar reference with the 2x2 in-plane rotation
	Ref2D Variant = iota
	// Ref3D takes a central section of a 3D reference for planar data
	Ref3D
	// Data3D compares volumetric data against a rotated 3D reference
	Data3D
)

func (v Variant) String() string {
	switch v {
	case Ref2D:
		return "ref2d"
	case Ref3D:
		return "ref3d"
	case Data3D:
		return "data3d"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant maps a config string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "ref2d", "2d":
		return Ref2D, nil
	case "ref3d", "3d":
		return Ref3D, nil
	case "data3d":
		return Data3D, nil
	default:
		return 0, fmt.Errorf("%w: unknown variant %q", ErrVariant, s)
	}
}

// variant is the per-pixel projection and translation strategy, bound to
// the translations of one batch. It is chosen once per invocation so the
// pixel loop never inspects configuration flags.
type variant[T Float] interface {
	reference(c addressing.Coord, e *[9]float64) (T, T)
	translate(c addressing.Coord, t int, re, im T) (T, T)
}

type planarRef[T Float] struct {
	proj   projector.Projector
	shift  projector.Shifter
	tx, ty []T
}

func (v planarRef[T]) reference(c addressing.Coord, e *[9]float64) (T, T) {
	re, im := v.proj.Project2D(c.X, c.Y, e[0], e[1], e[3], e[4])
	return T(re), T(im)
}

func (v planarRef[T]) translate(c addressing.Coord, t int, re, im T) (T, T) {
	r, i := v.shift.Shift2D(c.X, c.Y, float64(v.tx[t]), float64(v.ty[t]), float64(re), float64(im))
	return T(r), T(i)
}

type sectionRef[T Float] struct {
	proj   projector.Projector
	shift  projector.Shifter
	tx, ty []T
}

func (v sectionRef[T]) reference(c addressing.Coord, e *[9]float64) (T, T) {
	re, im := v.proj.Project3D(c.X, c.Y, e[0], e[1], e[3], e[4], e[6], e[7])
	return T(re), T(im)
}

func (v sectionRef[T]) translate(c addressing.Coord, t int, re, im T) (T, T) {
	r, i := v.shift.Shift2D(c.X, c.Y, float64(v.tx[t]), float64(v.ty[t]), float64(re), float64(im))
	return T(r), T(i)
}

type volumeRef[T Float] struct {
	proj       projector.Projector
	shift      projector.Shifter
	tx, ty, tz []T
}

func (v volumeRef[T]) reference(c addressing.Coord, e *[9]float64) (T, T) {
	re, im := v.proj.ProjectVolume(c.X, c.Y, c.Z, *e)
	return T(re), T(im)
}

func (v volumeRef[T]) translate(c addressing.Coord, t int, re, im T) (T, T) {
	r, i := v.shift.Shift3D(c.X, c.Y, c.Z,
		float64(v.tx[t]), float64(v.ty[t]), float64(v.tz[t]), float64(re), float64(im))
	return T(r), T(i)
}

func (k *Kernel[T]) bind(b *Batch[T]) variant[T] {
	switch k.params.Variant {
	case Data3D:
		return volumeRef[T]{proj: k.proj, shift: k.shift, tx: b.TransX, ty: b.TransY, tz: b.TransZ}
	case Ref3D:
		return sectionRef[T]{proj: k.proj, shift: k.shift, tx: b.TransX, ty: b.TransY}
	default:
		return planarRef[T]{proj: k.proj, shift: k.shift, tx: b.TransX, ty: b.TransY}
	}
}
