package projector

import (
	"math"
	"testing"

	"cryowavg/internal/models"
	"cryowavg/pkg/addressing"
	"cryowavg/pkg/rotation"
)

// createTestReference fills a planar half-space grid with a value that encodes its position
func createTestReference(size, depth int) *models.FourierVolume {
	ref := models.NewFourierVolume(size, depth)
	for z := 0; z < ref.ZDim; z++ {
		for y := 0; y < ref.YDim; y++ {
			for x := 0; x < ref.XDim; x++ {
				ref.Data[(z*ref.YDim+y)*ref.XDim+x] = complex(float64(x+10*y+100*z), float64(x-y+z))
			}
		}
	}
	return ref
}

func TestNewFourierProjectorRejectsRadius(t *testing.T) {
	ref := createTestReference(8, 1)
	if _, err := NewFourierProjector(ref, 5, Linear); err == nil {
		t.Error("expected error for radius outside half width")
	}
	if _, err := NewFourierProjector(nil, 3, Linear); err == nil {
		t.Error("expected error for nil reference")
	}
}

func TestProject2DIdentity(t *testing.T) {
	ref := createTestReference(8, 1)
	p, err := NewFourierProjector(ref, 3, NearestNeighbour)
	if err != nil {
		t.Fatalf("NewFourierProjector failed: %v", err)
	}

	for _, c := range [][2]int{{0, 0}, {2, 1}, {1, -2}, {3, 0}} {
		re, im := p.Project2D(c[0], c[1], 1, 0, 0, 1)
		want := ref.At(c[0], c[1], 0)
		if re != real(want) || im != imag(want) {
			t.Errorf("Project2D(%d,%d) = (%f,%f), want %v", c[0], c[1], re, im, want)
		}
	}
}

func TestProjectOutsideSupportIsZero(t *testing.T) {
	ref := createTestReference(8, 8)
	p, err := NewFourierProjector(ref, 3, Linear)
	if err != nil {
		t.Fatalf("NewFourierProjector failed: %v", err)
	}
	e := rotation.Flatten(rotation.Euler(0, 0, 0))

	// Every pixel the resolver clamps must sample to zero
	layout := addressing.Layout{ImgX: 5, ImgY: 8, ImgZ: 8, MaxR: 3}
	for px := 0; px < layout.Size(); px++ {
		c := layout.Resolve(px)
		clamped := c.Y > layout.MaxR || c.Z > layout.MaxR
		if !clamped {
			continue
		}
		if re, im := p.ProjectVolume(c.X, c.Y, c.Z, e); re != 0 || im != 0 {
			t.Errorf("clamped pixel %d %+v sampled (%f,%f)", px, c, re, im)
		}
		if re, im := p.Project3D(c.X, c.Y, e[0], e[1], e[3], e[4], e[6], e[7]); c.Y > layout.MaxR && (re != 0 || im != 0) {
			t.Errorf("clamped pixel %d %+v sampled (%f,%f) in Project3D", px, c, re, im)
		}
	}

	if re, im := p.Project2D(3, 1, 1, 0, 0, 1); re != 0 || im != 0 {
		t.Errorf("radius beyond maxR sampled (%f,%f)", re, im)
	}
}

func TestProjectFriedelMate(t *testing.T) {
	ref := createTestReference(8, 1)
	p, err := NewFourierProjector(ref, 3, NearestNeighbour)
	if err != nil {
		t.Fatalf("NewFourierProjector failed: %v", err)
	}

	// A 180 degree in-plane rotation maps (x, y) onto (-x, -y)
	e := rotation.Flatten(rotation.InPlane(180))
	re, im := p.Project2D(2, 1, e[0], e[1], e[3], e[4])
	want := ref.At(2, 1, 0)
	if math.Abs(re-real(want)) > 1e-9 || math.Abs(im+imag(want)) > 1e-9 {
		t.Errorf("rotated sample (%f,%f), want conj of %v", re, im, want)
	}
}

func TestProjectLinearMidpoint(t *testing.T) {
	ref := models.NewFourierVolume(8, 1)
	ref.Set(1, 0, 0, complex(2, 0))
	ref.Set(2, 0, 0, complex(4, 2))
	p, err := NewFourierProjector(ref, 3, Linear)
	if err != nil {
		t.Fatalf("NewFourierProjector failed: %v", err)
	}

	// Scaling x by 1.5 lands pixel x=1 between grid columns 1 and 2
	re, im := p.Project2D(1, 0, 1.5, 0, 0, 1)
	if math.Abs(re-3) > 1e-12 || math.Abs(im-1) > 1e-12 {
		t.Errorf("midpoint sample (%f,%f), want (3,1)", re, im)
	}
}

func TestParseInterpolation(t *testing.T) {
	if v, err := ParseInterpolation("linear"); err != nil || v != Linear {
		t.Errorf("ParseInterpolation(linear) = %v, %v", v, err)
	}
	if v, err := ParseInterpolation(""); err != nil || v != NearestNeighbour {
		t.Errorf("ParseInterpolation(\"\") = %v, %v", v, err)
	}
	if _, err := ParseInterpolation("cubic"); err == nil {
		t.Error("expected error for unknown interpolation")
	}
}
