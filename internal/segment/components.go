package segment

import (
	"container/list"
	"image"
)

// ComponentStats summarises one connected component. Seed is its first
// pixel in raster order.
type ComponentStats struct {
	Label int32
	Seed  image.Point
	Area  int
	MinX  int
	MinY  int
	MaxX  int
	MaxY  int
}

// neighbors8 lists the 8-connected offsets.
var neighbors8 = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// ConnectedComponents labels the 8-connected non-zero regions of m in raster
// order of their first pixel, starting at 1. Zero pixels keep label 0.
func ConnectedComponents(m *Mask) (*LabelField, []ComponentStats) {
	labels := NewLabelField(m.W, m.H)
	if m.Empty() {
		return labels, nil
	}
	in := func(i int) bool { return m.Pix[i] != 0 }
	join := func(_, to int) bool { return in(to) }
	return labels, labelComponents(labels, m.W, m.H, in, join)
}

// labelComponents runs the BFS labelling over pixels accepted by in. A
// neighbour joins the current component when join(from, to) holds.
func labelComponents(labels *LabelField, w, h int, in func(int) bool, join func(from, to int) bool) []ComponentStats {
	var comps []ComponentStats
	label := int32(1)
	for y := range h {
		for x := range w {
			idx := y*w + x
			if in(idx) && labels.Pix[idx] == 0 {
				comps = append(comps, floodComponent(labels, w, h, x, y, label, join))
				label++
			}
		}
	}
	return comps
}

// floodComponent performs BFS traversal from a seed pixel and returns the
// component statistics.
func floodComponent(labels *LabelField, w, h, startX, startY int, label int32,
	join func(from, to int) bool,
) ComponentStats {
	st := ComponentStats{
		Label: label, Seed: image.Pt(startX, startY),
		MinX: startX, MinY: startY, MaxX: startX, MaxY: startY,
	}
	q := list.New()
	startIdx := startY*w + startX
	q.PushBack(startIdx)
	labels.Pix[startIdx] = label

	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, ok := e.Value.(int)
		if !ok {
			continue
		}
		cx, cy := ci%w, ci/w
		st.Area++
		st.MinX = min(st.MinX, cx)
		st.MinY = min(st.MinY, cy)
		st.MaxX = max(st.MaxX, cx)
		st.MaxY = max(st.MaxY, cy)

		for _, d := range neighbors8 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			ni := ny*w + nx
			if labels.Pix[ni] == 0 && join(ci, ni) {
				labels.Pix[ni] = label
				q.PushBack(ni)
			}
		}
	}
	return st
}
