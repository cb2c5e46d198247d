package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"cryowavg/pkg/addressing"
)

// Viewer renders per-pixel accumulator maps stored in half-space layout
// order as grayscale images, one image per z slab.
type Viewer struct {
	// data holds one value per stored pixel
	data []float64

	// layout describes how data is stored
	layout addressing.Layout

	// min and max are used for contrast stretching
	min, max float64
}

// NewViewer creates a viewer for data stored in layout order
func NewViewer(data []float64, layout addressing.Layout) (*Viewer, error) {
	if len(data) < layout.Size() {
		return nil, fmt.Errorf("map has %d values, layout needs %d", len(data), layout.Size())
	}
	v := &Viewer{data: data, layout: layout, min: math.Inf(1), max: math.Inf(-1)}
	for _, d := range data[:layout.Size()] {
		v.min = math.Min(v.min, d)
		v.max = math.Max(v.max, d)
	}
	return v, nil
}

// Depth returns the number of z slabs
func (v *Viewer) Depth() int {
	if v.layout.Volumetric() {
		return v.layout.ImgZ
	}
	return 1
}

// ExtractSlice renders slab z with rows reordered so that frequency zero
// sits in the middle of the image
func (v *Viewer) ExtractSlice(z int) (image.Image, error) {
	if z < 0 || z >= v.Depth() {
		return nil, fmt.Errorf("slab %d outside [0, %d)", z, v.Depth())
	}

	w, h := v.layout.ImgX, v.layout.ImgY
	img := image.NewGray16(image.Rect(0, 0, w, h))
	span := v.max - v.min

	for row := 0; row < h; row++ {
		// Wraparound row of the displayed row
		y := (row + h/2) % h
		for x := 0; x < w; x++ {
			idx := z*w*h + y*w + x
			value := 0.0
			if span > 0 {
				value = (v.data[idx] - v.min) / span
			}
			img.SetGray16(x, row, color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value*65535)))})
		}
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence renders every slab into outputDir using prefix in the file names
func (v *Viewer) SaveSliceSequence(prefix, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for z := 0; z < v.Depth(); z++ {
		img, err := v.ExtractSlice(z)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%03d.jpg", prefix, z))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
