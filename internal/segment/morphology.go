package segment

import (
	"fmt"
	"image"
	"math"

	"github.com/cyber-run/floro/internal/mempool"
)

// KernelShape selects the structuring element geometry.
type KernelShape int

const (
	KernelRect KernelShape = iota
	KernelEllipse
)

func (s KernelShape) String() string {
	switch s {
	case KernelRect:
		return "rect"
	case KernelEllipse:
		return "ellipse"
	default:
		return fmt.Sprintf("KernelShape(%d)", int(s))
	}
}

// ParseKernelShape maps "rect" or "ellipse" to a shape.
func ParseKernelShape(s string) (KernelShape, error) {
	switch s {
	case "", "rect":
		return KernelRect, nil
	case "ellipse":
		return KernelEllipse, nil
	default:
		return 0, invalidConfig("morphology", "unknown kernel shape %q", s)
	}
}

// Kernel is a square structuring element anchored at its centre.
type Kernel struct {
	Shape   KernelShape
	Size    int
	offsets []image.Point
}

// NewKernel builds a structuring element of the given shape and size.
func NewKernel(shape KernelShape, size int) (Kernel, error) {
	if size < 1 {
		return Kernel{}, invalidConfig("morphology", "kernel size must be >= 1, got %d", size)
	}
	k := Kernel{Shape: shape, Size: size}
	anchor := size / 2
	switch shape {
	case KernelRect:
		for y := range size {
			for x := range size {
				k.offsets = append(k.offsets, image.Pt(x-anchor, y-anchor))
			}
		}
	case KernelEllipse:
		r, c := size/2, size/2
		invR2 := 0.0
		if r > 0 {
			invR2 = 1.0 / float64(r*r)
		}
		for y := range size {
			dy := y - r
			if dy < -r || dy > r {
				continue
			}
			dx := int(math.RoundToEven(float64(c) * math.Sqrt(float64(r*r-dy*dy)*invR2)))
			x1 := max(c-dx, 0)
			x2 := min(c+dx+1, size)
			for x := x1; x < x2; x++ {
				k.offsets = append(k.offsets, image.Pt(x-anchor, y-anchor))
			}
		}
	default:
		return Kernel{}, invalidConfig("morphology", "unknown kernel shape %d", int(shape))
	}
	return k, nil
}

// Contains reports whether the element covers offset (dx, dy) from the anchor.
func (k Kernel) Contains(dx, dy int) bool {
	for _, o := range k.offsets {
		if o.X == dx && o.Y == dy {
			return true
		}
	}
	return false
}

// Erode applies erosion iterations times. Pixels outside the grid are ignored.
func Erode(m *Mask, k Kernel, iterations int) *Mask {
	return morph(m, k, iterations, false)
}

// Dilate applies dilation iterations times. Pixels outside the grid are ignored.
func Dilate(m *Mask, k Kernel, iterations int) *Mask {
	return morph(m, k, iterations, true)
}

// Open erodes iterations times, then dilates iterations times.
func Open(m *Mask, k Kernel, iterations int) *Mask {
	return Dilate(Erode(m, k, iterations), k, iterations)
}

func morph(m *Mask, k Kernel, iterations int, dilate bool) *Mask {
	out := m.Clone()
	if m.Empty() || iterations <= 0 || len(k.offsets) == 0 {
		return out
	}

	scratch := mempool.Uint8.Get(len(out.Pix))
	defer mempool.Uint8.Put(scratch)

	for range iterations {
		copy(scratch, out.Pix)
		morphPass(scratch, out.Pix, m.W, m.H, k.offsets, dilate)
	}
	return out
}

// morphPass writes the min (erode) or max (dilate) of src under the kernel into dst.
func morphPass(src, dst []uint8, w, h int, offsets []image.Point, dilate bool) {
	for y := range h {
		for x := range w {
			var v uint8
			if !dilate {
				v = 255
			}
			for _, o := range offsets {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				s := src[ny*w+nx]
				if dilate && s > v {
					v = s
				} else if !dilate && s < v {
					v = s
				}
			}
			dst[y*w+x] = v
		}
	}
}
