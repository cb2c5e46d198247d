package models

// FourierVolume is a half-space Fourier transform of a real image or volume.
//
// Only frequencies with x >= 0 are stored. Y and Z are stored in wraparound
// order: row j holds frequency j for j <= YDim/2 and j-YDim above that.
// Planar references have ZDim == 1.
type FourierVolume struct {
	// Data holds the samples in z-major, then y, then x order
	Data []complex128

	// XDim is the stored half width (OriSize/2 + 1)
	XDim int

	// YDim and ZDim are the full extents along y and z
	YDim int
	ZDim int

	// OriSize is the edge length of the real-space box
	OriSize int
}

// NewFourierVolume allocates a zeroed half-space grid for a box of edge
// length oriSize. depth is 1 for images.
func NewFourierVolume(oriSize, depth int) *FourierVolume {
	xdim := oriSize/2 + 1
	return &FourierVolume{
		Data:    make([]complex128, xdim*oriSize*depth),
		XDim:    xdim,
		YDim:    oriSize,
		ZDim:    depth,
		OriSize: oriSize,
	}
}

// Is3D reports whether the grid has a depth axis.
func (v *FourierVolume) Is3D() bool {
	return v.ZDim > 1
}

// At returns the sample at logical frequency (x, y, z). Negative y and z
// wrap around; x outside [0, XDim) yields zero.
func (v *FourierVolume) At(x, y, z int) complex128 {
	if x < 0 || x >= v.XDim {
		return 0
	}
	y = wrap(y, v.YDim)
	z = wrap(z, v.ZDim)
	return v.Data[(z*v.YDim+y)*v.XDim+x]
}

// Set stores a sample at logical frequency (x, y, z).
func (v *FourierVolume) Set(x, y, z int, c complex128) {
	y = wrap(y, v.YDim)
	z = wrap(z, v.ZDim)
	v.Data[(z*v.YDim+y)*v.XDim+x] = c
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
