package addressing

import "testing"

func TestResolvePlanar(t *testing.T) {
	l := Layout{ImgX: 8, ImgY: 8, MaxR: 3}

	tests := []struct {
		name  string
		pixel int
		want  Coord
	}{
		{"first row", 5, Coord{X: 5, Y: 0}},
		{"inside radius", 3*8 + 2, Coord{X: 2, Y: 3}},
		{"wraps near upper edge", 6*8 + 1, Coord{X: 1, Y: -2}},
		{"wraps at imgY-maxR", 5*8 + 2, Coord{X: 2, Y: -3}},
		{"clamps between maxR and imgY-maxR", 4*8 + 1, Coord{X: 3, Y: 4}},
		{"last pixel", 63, Coord{X: 7, Y: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Resolve(tt.pixel)
			if got != tt.want {
				t.Errorf("Resolve(%d) = %+v, want %+v", tt.pixel, got, tt.want)
			}
		})
	}
}

func TestResolveVolumetric(t *testing.T) {
	l := Layout{ImgX: 4, ImgY: 8, ImgZ: 8, MaxR: 3}
	plane := l.ImgX * l.ImgY

	tests := []struct {
		name  string
		pixel int
		want  Coord
	}{
		{"origin slab", 2*4 + 1, Coord{X: 1, Y: 2, Z: 0}},
		{"z wraps", 7*plane + 1*4 + 2, Coord{X: 2, Y: 1, Z: -1}},
		{"z clamps", 4*plane + 1*4 + 2, Coord{X: 3, Y: 1, Z: 4}},
		{"z and y wrap", 6*plane + 7*4 + 0, Coord{X: 0, Y: -1, Z: -2}},
		{"y clamps after z wraps", 6*plane + 4*4 + 0, Coord{X: 3, Y: 4, Z: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Resolve(tt.pixel)
			if got != tt.want {
				t.Errorf("Resolve(%d) = %+v, want %+v", tt.pixel, got, tt.want)
			}
		})
	}
}

// The planar rule must be the volumetric rule restricted to the first slab.
func TestResolvePlanarMatchesFirstSlab(t *testing.T) {
	planar := Layout{ImgX: 5, ImgY: 8, MaxR: 3}
	volume := Layout{ImgX: 5, ImgY: 8, ImgZ: 8, MaxR: 3}

	for p := 0; p < planar.Size(); p++ {
		a := planar.Resolve(p)
		b := volume.Resolve(p)
		if a != b {
			t.Fatalf("pixel %d: planar %+v, volumetric %+v", p, a, b)
		}
	}
}

func TestIndexInvertsResolve(t *testing.T) {
	l := Layout{ImgX: 5, ImgY: 8, ImgZ: 8, MaxR: 3}
	for p := 0; p < l.Size(); p++ {
		c := l.Resolve(p)
		if c.X == l.MaxR && c.Y > l.MaxR || c.Z > l.MaxR {
			continue
		}
		if got := l.Index(c); got != p {
			t.Errorf("Index(Resolve(%d)) = %d", p, got)
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	if err := (Layout{ImgX: 5, ImgY: 8, MaxR: 3}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Layout{ImgX: 0, ImgY: 8}).Validate(); err == nil {
		t.Error("expected error for zero width")
	}
	if err := (Layout{ImgX: 4, ImgY: 8, MaxR: -1}).Validate(); err == nil {
		t.Error("expected error for negative radius")
	}
}
