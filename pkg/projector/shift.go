package projector

import "math"

// Shifter applies a real-space translation to one Fourier sample.
type Shifter interface {
	Shift2D(x, y int, tx, ty, re, im float64) (float64, float64)
	Shift3D(x, y, z int, tx, ty, tz, re, im float64) (float64, float64)
}

// PhaseShifter implements the Fourier shift theorem for a box of edge
// length OriSize. Translations are given in pixels.
type PhaseShifter struct {
	scale float64
}

// NewPhaseShifter returns a shifter for a real-space box of oriSize pixels.
func NewPhaseShifter(oriSize int) PhaseShifter {
	return PhaseShifter{scale: -2 * math.Pi / float64(oriSize)}
}

// Shift2D implements Shifter.
func (s PhaseShifter) Shift2D(x, y int, tx, ty, re, im float64) (float64, float64) {
	return rotatePhase(s.scale*(float64(x)*tx+float64(y)*ty), re, im)
}

// Shift3D implements Shifter.
func (s PhaseShifter) Shift3D(x, y, z int, tx, ty, tz, re, im float64) (float64, float64) {
	return rotatePhase(s.scale*(float64(x)*tx+float64(y)*ty+float64(z)*tz), re, im)
}

func rotatePhase(a, re, im float64) (float64, float64) {
	if a == 0 {
		return re, im
	}
	sa, ca := math.Sincos(a)
	return ca*re - sa*im, ca*im + sa*re
}
