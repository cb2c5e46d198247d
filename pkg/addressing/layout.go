// Package addressing maps linear pixel indices of a half-space Fourier image
// (or volume) to signed frequency coordinates.
//
// Only the non-negative x half of a conjugate-symmetric spectrum is stored.
// Rows (and slabs, for volumes) are stored in wraparound order, so indices
// near the upper edge of the array hold negative frequencies. Indices beyond
// the valid radius that are not close enough to the upper edge to wrap have
// no sample in the stored half; for those the resolver pushes x out to MaxR,
// which places the point outside the projector's support.
package addressing

import "fmt"

// Layout describes the stored half-space grid.
type Layout struct {
	// ImgX is the stored width (the half-space x extent).
	ImgX int `yaml:"imgX"`

	// ImgY is the full height in wraparound order.
	ImgY int `yaml:"imgY"`

	// ImgZ is the full depth in wraparound order. Zero means planar data.
	ImgZ int `yaml:"imgZ"`

	// MaxR is the largest valid frequency radius.
	MaxR int `yaml:"maxR"`
}

// Coord is a resolved frequency coordinate. Z is always 0 for planar data.
type Coord struct {
	X, Y, Z int
}

// Volumetric reports whether the layout carries a depth axis.
func (l Layout) Volumetric() bool {
	return l.ImgZ > 0
}

// Size returns the number of pixels (or voxels) in one stored image.
func (l Layout) Size() int {
	if l.Volumetric() {
		return l.ImgX * l.ImgY * l.ImgZ
	}
	return l.ImgX * l.ImgY
}

// Validate checks the layout dimensions.
func (l Layout) Validate() error {
	if l.ImgX <= 0 || l.ImgY <= 0 {
		return fmt.Errorf("invalid layout %dx%d: dimensions must be positive", l.ImgX, l.ImgY)
	}
	if l.ImgZ < 0 {
		return fmt.Errorf("invalid layout depth %d", l.ImgZ)
	}
	if l.MaxR < 0 {
		return fmt.Errorf("invalid max radius %d", l.MaxR)
	}
	return nil
}

// Resolve maps pixel index p in [0, Size()) to its frequency coordinate.
//
// For volumetric layouts z is derived first and wrapped or clamped against
// ImgZ; y is then wrapped or clamped against ImgY in both cases. A clamp
// sets X to MaxR and leaves the offending axis untouched.
func (l Layout) Resolve(p int) Coord {
	var c Coord
	if l.Volumetric() {
		plane := l.ImgX * l.ImgY
		c.Z = p / plane
		xy := p % plane
		c.X = xy % l.ImgX
		c.Y = xy / l.ImgX
		if c.Z > l.MaxR {
			if c.Z >= l.ImgZ-l.MaxR {
				c.Z -= l.ImgZ
			} else {
				c.X = l.MaxR
			}
		}
	} else {
		c.X = p % l.ImgX
		c.Y = p / l.ImgX
	}
	if c.Y > l.MaxR {
		if c.Y >= l.ImgY-l.MaxR {
			c.Y -= l.ImgY
		} else {
			c.X = l.MaxR
		}
	}
	return c
}

// Index is the inverse of Resolve for coordinates that were not clamped.
// Negative Y and Z are mapped back to their wraparound rows.
func (l Layout) Index(c Coord) int {
	y := c.Y
	if y < 0 {
		y += l.ImgY
	}
	idx := y*l.ImgX + c.X
	if l.Volumetric() {
		z := c.Z
		if z < 0 {
			z += l.ImgZ
		}
		idx += z * l.ImgX * l.ImgY
	}
	return idx
}
