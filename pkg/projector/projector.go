// Package projector samples central sections of a half-space Fourier
// reference and applies real-space translations in Fourier space.
//
// Coordinates handed to a Projector are signed frequencies as produced by
// the addressing package. Any coordinate with squared radius above MaxR²
// samples to exactly zero; the address resolver relies on this to mark
// out-of-support pixels by setting x to MaxR.
package projector

import (
	"fmt"
	"math"

	"cryowavg/internal/models"
)

// Projector returns a complex sample of a rotated reference.
type Projector interface {
	// Project2D samples a planar reference rotated by the 2x2 in-plane block.
	Project2D(x, y int, e0, e1, e3, e4 float64) (re, im float64)

	// Project3D samples the central section of a 3D reference for planar
	// data, using the first two columns of the rotation matrix.
	Project3D(x, y int, e0, e1, e3, e4, e6, e7 float64) (re, im float64)

	// ProjectVolume samples a 3D reference for volumetric data.
	ProjectVolume(x, y, z int, e [9]float64) (re, im float64)
}

// Interpolation selects how off-grid samples are computed.
type Interpolation int

const (
	// NearestNeighbour rounds to the closest stored sample
	NearestNeighbour Interpolation = iota
	// Linear uses bilinear (planar) or trilinear (3D) interpolation
	Linear
)

// ParseInterpolation maps a config string to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "nearest", "":
		return NearestNeighbour, nil
	case "linear":
		return Linear, nil
	default:
		return 0, fmt.Errorf("unknown interpolation %q", s)
	}
}

// FourierProjector samples a models.FourierVolume.
type FourierProjector struct {
	ref    *models.FourierVolume
	maxR2  int
	interp Interpolation
}

// NewFourierProjector wraps ref. maxR is the support radius in frequency
// units and must fit inside the stored half width.
func NewFourierProjector(ref *models.FourierVolume, maxR int, interp Interpolation) (*FourierProjector, error) {
	if ref == nil {
		return nil, fmt.Errorf("nil reference")
	}
	if maxR < 0 || maxR >= ref.XDim {
		return nil, fmt.Errorf("max radius %d outside stored half width %d", maxR, ref.XDim)
	}
	return &FourierProjector{ref: ref, maxR2: maxR * maxR, interp: interp}, nil
}

// Project2D implements Projector.
func (p *FourierProjector) Project2D(x, y int, e0, e1, e3, e4 float64) (float64, float64) {
	if x*x+y*y > p.maxR2 {
		return 0, 0
	}
	xp := e0*float64(x) + e1*float64(y)
	yp := e3*float64(x) + e4*float64(y)
	return p.sample(xp, yp, 0, false)
}

// Project3D implements Projector.
func (p *FourierProjector) Project3D(x, y int, e0, e1, e3, e4, e6, e7 float64) (float64, float64) {
	if x*x+y*y > p.maxR2 {
		return 0, 0
	}
	xp := e0*float64(x) + e1*float64(y)
	yp := e3*float64(x) + e4*float64(y)
	zp := e6*float64(x) + e7*float64(y)
	return p.sample(xp, yp, zp, true)
}

// ProjectVolume implements Projector.
func (p *FourierProjector) ProjectVolume(x, y, z int, e [9]float64) (float64, float64) {
	if x*x+y*y+z*z > p.maxR2 {
		return 0, 0
	}
	fx, fy, fz := float64(x), float64(y), float64(z)
	xp := e[0]*fx + e[1]*fy + e[2]*fz
	yp := e[3]*fx + e[4]*fy + e[5]*fz
	zp := e[6]*fx + e[7]*fy + e[8]*fz
	return p.sample(xp, yp, zp, true)
}

// sample reads the reference at a fractional frequency. Points with negative
// x are read from their Friedel mate and conjugated.
func (p *FourierProjector) sample(xp, yp, zp float64, volumetric bool) (float64, float64) {
	conj := false
	if xp < 0 {
		xp, yp, zp = -xp, -yp, -zp
		conj = true
	}
	if !volumetric {
		zp = 0
	}

	var c complex128
	switch p.interp {
	case Linear:
		c = p.linear(xp, yp, zp, volumetric)
	default:
		c = p.ref.At(round(xp), round(yp), round(zp))
	}

	if conj {
		return real(c), -imag(c)
	}
	return real(c), imag(c)
}

func (p *FourierProjector) linear(xp, yp, zp float64, volumetric bool) complex128 {
	x0 := int(math.Floor(xp))
	y0 := int(math.Floor(yp))
	z0 := int(math.Floor(zp))
	fx := complex(xp-float64(x0), 0)
	fy := complex(yp-float64(y0), 0)
	fz := complex(zp-float64(z0), 0)

	lerp := func(a, b, f complex128) complex128 { return a + f*(b-a) }

	plane := func(z int) complex128 {
		d00 := p.ref.At(x0, y0, z)
		d01 := p.ref.At(x0+1, y0, z)
		d10 := p.ref.At(x0, y0+1, z)
		d11 := p.ref.At(x0+1, y0+1, z)
		return lerp(lerp(d00, d01, fx), lerp(d10, d11, fx), fy)
	}

	if !volumetric {
		return plane(0)
	}
	return lerp(plane(z0), plane(z0+1), fz)
}

func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
