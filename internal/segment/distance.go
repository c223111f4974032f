package segment

import (
	"math"
)

// Chamfer weights of the 5x5 L2 approximation: axial, diagonal and knight moves.
const (
	chamferA = 1.0
	chamferB = 1.4
	chamferC = 2.1969
)

// DistanceMap holds per-pixel distances to the nearest background pixel.
type DistanceMap struct {
	W, H int
	Pix  []float32
}

// Max returns the largest distance, or 0 for an empty map.
func (d *DistanceMap) Max() float32 {
	var m float32
	for _, v := range d.Pix {
		if v > m {
			m = v
		}
	}
	return m
}

type chamferStep struct {
	dx, dy int
	w      float32
}

// Forward-pass neighbourhood. The backward pass uses the mirrored offsets.
var chamferForward = []chamferStep{
	{-1, -2, chamferC}, {1, -2, chamferC},
	{-2, -1, chamferC}, {-1, -1, chamferB}, {0, -1, chamferA}, {1, -1, chamferB}, {2, -1, chamferC},
	{-1, 0, chamferA},
}

// DistanceTransform computes the L2 distance of every foreground pixel of m to
// the nearest zero pixel using a two-pass 5x5 chamfer mask. Pixels outside the
// grid do not count as background, so a mask with no zero pixel maps to +Inf.
func DistanceTransform(m *Mask) *DistanceMap {
	d := &DistanceMap{W: m.W, H: m.H, Pix: make([]float32, len(m.Pix))}
	if m.Empty() {
		return d
	}
	w, h := m.W, m.H
	inf := float32(math.MaxFloat32)
	for i, v := range m.Pix {
		if v != 0 {
			d.Pix[i] = inf
		}
	}

	relax := func(x, y int, steps []chamferStep, sign int) {
		i := y*w + x
		cur := d.Pix[i]
		if cur == 0 {
			return
		}
		for _, s := range steps {
			nx, ny := x+sign*s.dx, y+sign*s.dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			nv := d.Pix[ny*w+nx]
			if nv == inf {
				continue
			}
			if c := nv + s.w; c < cur {
				cur = c
			}
		}
		d.Pix[i] = cur
	}

	for y := range h {
		for x := range w {
			relax(x, y, chamferForward, 1)
		}
	}
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			relax(x, y, chamferForward, -1)
		}
	}

	for i, v := range d.Pix {
		if v == inf {
			d.Pix[i] = float32(math.Inf(1))
		}
	}
	return d
}
