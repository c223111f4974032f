package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Disk is a filled circle in pixel coordinates.
type Disk struct {
	Center image.Point
	Radius int
	Value  uint8
}

// Contains reports whether p lies inside the disk, boundary included.
func (d Disk) Contains(p image.Point) bool {
	dx, dy := p.X-d.Center.X, p.Y-d.Center.Y
	return dx*dx+dy*dy <= d.Radius*d.Radius
}

// DiskImage draws disks onto a uniform gray background of the given size.
func DiskImage(w, h int, background uint8, disks ...Disk) *image.Gray {
	img := UniformImage(w, h, background)
	for _, d := range disks {
		for y := d.Center.Y - d.Radius; y <= d.Center.Y+d.Radius; y++ {
			for x := d.Center.X - d.Radius; x <= d.Center.X+d.Radius; x++ {
				p := image.Pt(x, y)
				if p.In(img.Rect) && d.Contains(p) {
					img.SetGray(x, y, color.Gray{Y: d.Value})
				}
			}
		}
	}
	return img
}

// TouchingDisks is the 100x100 white image with two black radius-15 disks
// at (30,50) and (60,50) that meet in a single pixel.
func TouchingDisks() *image.Gray {
	return DiskImage(100, 100, 255,
		Disk{Center: image.Pt(30, 50), Radius: 15, Value: 0},
		Disk{Center: image.Pt(60, 50), Radius: 15, Value: 0},
	)
}

// UniformImage returns a single-valued grayscale image.
func UniformImage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// WellArrayConfig describes a regular grid of wells.
type WellArrayConfig struct {
	Rows, Cols int
	Pitch      int
	Radius     int
	Margin     int
	Background uint8
	// WellValue returns the intensity of the well at (row, col).
	WellValue func(row, col int) uint8
	Caption   string
}

// DefaultWellArrayConfig returns a 3x4 array of dark wells on white.
func DefaultWellArrayConfig() WellArrayConfig {
	return WellArrayConfig{
		Rows: 3, Cols: 4, Pitch: 40, Radius: 12, Margin: 30, Background: 240,
		WellValue: func(row, col int) uint8 { return uint8(20 + 10*(row*4+col)) },
	}
}

// WellArray renders the grid described by cfg and returns it with the disks
// in row-major order.
func WellArray(cfg WellArrayConfig) (*image.RGBA, []Disk) {
	w := 2*cfg.Margin + (cfg.Cols-1)*cfg.Pitch
	h := 2*cfg.Margin + (cfg.Rows-1)*cfg.Pitch
	var disks []Disk
	for r := range cfg.Rows {
		for c := range cfg.Cols {
			v := uint8(0)
			if cfg.WellValue != nil {
				v = cfg.WellValue(r, c)
			}
			disks = append(disks, Disk{
				Center: image.Pt(cfg.Margin+c*cfg.Pitch, cfg.Margin+r*cfg.Pitch),
				Radius: cfg.Radius,
				Value:  v,
			})
		}
	}
	gray := DiskImage(w, h, cfg.Background, disks...)
	rgba := image.NewRGBA(gray.Rect)
	draw.Draw(rgba, rgba.Bounds(), gray, image.Point{}, draw.Src)

	if cfg.Caption != "" {
		drawer := &font.Drawer{
			Dst:  rgba,
			Src:  image.NewUniform(color.Black),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(2, h-2),
		}
		drawer.DrawString(cfg.Caption)
	}
	return rgba, disks
}

// SaveImage writes img as PNG to path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	f, err := os.Create(path) //nolint:gosec // G304: test output path
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, img))
}

// WriteTempImage saves img as PNG inside a per-test temp dir and returns the path.
func WriteTempImage(t *testing.T, img image.Image, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	SaveImage(t, img, path)
	return path
}
