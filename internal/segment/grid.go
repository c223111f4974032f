package segment

import (
	"image"
	"slices"

	"github.com/disintegration/imaging"
)

// Marker field label values. The offsets are fixed: contour extraction skips
// everything below LabelFirstObject.
const (
	LabelBoundary    int32 = -1
	LabelUnknown     int32 = 0
	LabelBackground  int32 = 1
	LabelFirstObject int32 = 2
)

// Mask values.
const (
	MaskOff uint8 = 0
	MaskOn  uint8 = 255
)

// Gray is a row-major 8-bit single channel grid.
type Gray struct {
	W, H int
	Pix  []uint8
}

// Mask is a binary grid holding MaskOff or MaskOn.
type Mask = Gray

// LabelField is a row-major grid of marker labels.
type LabelField struct {
	W, H int
	Pix  []int32
}

// NewGray allocates a zeroed grid. Non-positive sizes give an empty grid.
func NewGray(w, h int) *Gray {
	if w <= 0 || h <= 0 {
		return &Gray{}
	}
	return &Gray{W: w, H: h, Pix: make([]uint8, w*h)}
}

// NewLabelField allocates a field filled with LabelUnknown.
func NewLabelField(w, h int) *LabelField {
	if w <= 0 || h <= 0 {
		return &LabelField{}
	}
	return &LabelField{W: w, H: h, Pix: make([]int32, w*h)}
}

// Empty reports whether the grid has no pixels.
func (g *Gray) Empty() bool {
	return g == nil || g.W <= 0 || g.H <= 0
}

// At returns the sample at (x, y), or 0 outside the grid.
func (g *Gray) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= g.W || y >= g.H {
		return 0
	}
	return g.Pix[y*g.W+x]
}

// Clone returns a deep copy.
func (g *Gray) Clone() *Gray {
	out := &Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	copy(out.Pix, g.Pix)
	return out
}

// Count returns the number of non-zero samples.
func (g *Gray) Count() int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Image converts the grid into an *image.Gray anchored at the origin.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.W, g.H))
	for y := range g.H {
		copy(img.Pix[y*img.Stride:y*img.Stride+g.W], g.Pix[y*g.W:(y+1)*g.W])
	}
	return img
}

// Clone returns a deep copy.
func (f *LabelField) Clone() *LabelField {
	out := &LabelField{W: f.W, H: f.H, Pix: make([]int32, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

// At returns the label at (x, y), or LabelBoundary outside the field.
func (f *LabelField) At(x, y int) int32 {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return LabelBoundary
	}
	return f.Pix[y*f.W+x]
}

// Labels returns the distinct label values in ascending order.
func (f *LabelField) Labels() []int32 {
	seen := make(map[int32]struct{})
	for _, v := range f.Pix {
		seen[v] = struct{}{}
	}
	out := make([]int32, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// ToGray converts any image into an 8-bit luma grid using
// Y = 0.299R + 0.587G + 0.114B. *image.Gray input is copied as-is.
func ToGray(img image.Image) *Gray {
	if img == nil {
		return &Gray{}
	}
	b := img.Bounds()
	out := NewGray(b.Dx(), b.Dy())
	if out.Empty() {
		return out
	}
	if gi, ok := img.(*image.Gray); ok {
		for y := range out.H {
			row := gi.Pix[gi.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*out.W:(y+1)*out.W], row[:out.W])
		}
		return out
	}
	luma := imaging.Grayscale(img)
	for y := range out.H {
		for x := range out.W {
			out.Pix[y*out.W+x] = luma.Pix[y*luma.Stride+x*4]
		}
	}
	return out
}

// planes splits an image into 8-bit channel planes for watershed. Gray input
// yields one plane, anything else three.
func planes(img image.Image) [][]uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if _, ok := img.(*image.Gray); ok {
		return [][]uint8{ToGray(img).Pix}
	}
	nrgba := imaging.Clone(img)
	out := [][]uint8{make([]uint8, w*h), make([]uint8, w*h), make([]uint8, w*h)}
	for y := range h {
		for x := range w {
			o := y*nrgba.Stride + x*4
			i := y*w + x
			out[0][i] = nrgba.Pix[o]
			out[1][i] = nrgba.Pix[o+1]
			out[2][i] = nrgba.Pix[o+2]
		}
	}
	return out
}
