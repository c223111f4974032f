// Package analysis computes per-well intensity statistics over the grayscale
// source of a segmentation.
package analysis

import (
	"image"

	"github.com/cyber-run/floro/internal/segment"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// coverageOn is the minimum rasterizer coverage for an interior pixel.
const coverageOn = 0x80

// FillMask rasterises the closed polygon into a mask restricted to bounds.
// Pixels inside the polygon and every pixel on its outline are set to 0xff.
func FillMask(bounds image.Rectangle, contour []image.Point) *image.Alpha {
	r := segment.ContourBounds(contour).Intersect(bounds)
	mask := image.NewAlpha(r)
	if r.Empty() {
		return mask
	}

	if len(contour) >= 3 {
		z := vector.NewRasterizer(r.Dx(), r.Dy())
		for i, p := range contour {
			x := float32(p.X-r.Min.X) + 0.5
			y := float32(p.Y-r.Min.Y) + 0.5
			if i == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()

		cov := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
		z.Draw(cov, cov.Bounds(), image.Opaque, image.Point{})
		for i, a := range cov.Pix {
			if a >= coverageOn {
				mask.Pix[i] = 0xff
			}
		}
	}

	// Outline pixels. Chain-approximated edges are axis-aligned or diagonal,
	// other edges are walked diagonally first.
	n := len(contour)
	for i := range n {
		p, q := contour[i], contour[(i+1)%n]
		for c := p; ; {
			if c.In(r) {
				mask.Pix[mask.PixOffset(c.X, c.Y)] = 0xff
			}
			if c == q {
				break
			}
			c = c.Add(image.Pt(sign(q.X-c.X), sign(q.Y-c.Y)))
		}
	}
	return mask
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// samples collects the grayscale values covered by the filled contour.
func samples(gray *segment.Gray, contour []image.Point) []float64 {
	if gray.Empty() {
		return nil
	}
	mask := FillMask(image.Rect(0, 0, gray.W, gray.H), contour)
	r := mask.Rect
	var vals []float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.Pix[mask.PixOffset(x, y)] != 0 {
				vals = append(vals, float64(gray.Pix[y*gray.W+x]))
			}
		}
	}
	return vals
}

// MeanIntensity returns the mean grayscale value inside the filled contour,
// or 0 when the contour covers no pixel.
func MeanIntensity(gray *segment.Gray, contour []image.Point) float64 {
	vals := samples(gray, contour)
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

// ContourStats summarises the grayscale values inside the filled contour.
// StdDev is the sample standard deviation and 0 below two pixels.
func ContourStats(gray *segment.Gray, contour []image.Point) segment.IntensityStats {
	return describe(samples(gray, contour))
}

func describe(vals []float64) segment.IntensityStats {
	if len(vals) == 0 {
		return segment.IntensityStats{}
	}
	st := segment.IntensityStats{
		Pixels: len(vals),
		Min:    floats.Min(vals),
		Max:    floats.Max(vals),
	}
	if len(vals) < 2 {
		st.Mean = vals[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(vals, nil)
	return st
}

// Analyze fills MeanIntensity and Stats of every well in place. Contours must
// be in the coordinates of gray.
func Analyze(gray *segment.Gray, wells []segment.Well) {
	for i := range wells {
		st := ContourStats(gray, wells[i].Contour)
		wells[i].MeanIntensity = st.Mean
		wells[i].Stats = &st
	}
}
