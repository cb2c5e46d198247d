// Package spectrum computes half-space Fourier transforms of real images and
// volumes in the layout the projector and the weighted-average kernel expect.
package spectrum

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"cryowavg/internal/models"
)

// HalfSpace2D performs a 2D Fast Fourier Transform of a square real image
// and keeps the non-negative x half.
//
// Parameters:
//   - data: Input image data as a 1D array (row-major order)
//   - size: Width/height of the square image
//
// Returns:
//   - A FourierVolume with XDim = size/2+1, YDim = size and ZDim = 1
func HalfSpace2D(data []float64, size int) (*models.FourierVolume, error) {
	if size <= 0 || len(data) != size*size {
		return nil, fmt.Errorf("image of %d samples is not %dx%d", len(data), size, size)
	}

	out := models.NewFourierVolume(size, 1)
	rowTransform(out, data, size, 1)
	columnTransform(out, 1)
	return out, nil
}

// HalfSpace3D performs a 3D Fast Fourier Transform of a cubic real volume
// (z-major, then y, then x) and keeps the non-negative x half.
func HalfSpace3D(data []float64, size int) (*models.FourierVolume, error) {
	if size <= 0 || len(data) != size*size*size {
		return nil, fmt.Errorf("volume of %d samples is not %d^3", len(data), size)
	}

	out := models.NewFourierVolume(size, size)
	rowTransform(out, data, size, size)
	columnTransform(out, size)
	slabTransform(out)
	return out, nil
}

// rowTransform computes the real FFT along x for every row. Gonum's real FFT
// already returns only the size/2+1 non-redundant coefficients.
func rowTransform(out *models.FourierVolume, data []float64, size, depth int) {
	fft := fourier.NewFFT(size)
	rowOutput := make([]complex128, size/2+1)

	for z := 0; z < depth; z++ {
		for y := 0; y < size; y++ {
			start := (z*size + y) * size
			fft.Coefficients(rowOutput, data[start:start+size])
			copy(out.Data[(z*out.YDim+y)*out.XDim:], rowOutput)
		}
	}
}

// columnTransform computes the complex FFT along y for every stored column.
func columnTransform(out *models.FourierVolume, depth int) {
	fft := fourier.NewCmplxFFT(out.YDim)
	colInput := make([]complex128, out.YDim)
	colOutput := make([]complex128, out.YDim)

	for z := 0; z < depth; z++ {
		for x := 0; x < out.XDim; x++ {
			for y := 0; y < out.YDim; y++ {
				colInput[y] = out.Data[(z*out.YDim+y)*out.XDim+x]
			}
			fft.Coefficients(colOutput, colInput)
			for y := 0; y < out.YDim; y++ {
				out.Data[(z*out.YDim+y)*out.XDim+x] = colOutput[y]
			}
		}
	}
}

// slabTransform computes the complex FFT along z for every (x, y) line.
func slabTransform(out *models.FourierVolume) {
	fft := fourier.NewCmplxFFT(out.ZDim)
	lineInput := make([]complex128, out.ZDim)
	lineOutput := make([]complex128, out.ZDim)
	plane := out.XDim * out.YDim

	for i := 0; i < plane; i++ {
		for z := 0; z < out.ZDim; z++ {
			lineInput[z] = out.Data[z*plane+i]
		}
		fft.Coefficients(lineOutput, lineInput)
		for z := 0; z < out.ZDim; z++ {
			out.Data[z*plane+i] = lineOutput[z]
		}
	}
}
