package segment

import "image"

// mooreDirs walks the 8-neighbourhood clockwise (y grows downwards):
// E, SE, S, SW, W, NW, N, NE.
var mooreDirs = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

func mooreIndex(d image.Point) int {
	for i, m := range mooreDirs {
		if m == d {
			return i
		}
	}
	return 0
}

// nextBoundaryPixel scans the neighbours of c clockwise, starting after the
// backtrack b, and returns the first inside pixel together with the outside
// pixel visited just before it.
func nextBoundaryPixel(inside func(image.Point) bool, c, b image.Point) (image.Point, image.Point, bool) {
	start := mooreIndex(b.Sub(c))
	prev := b
	for k := 1; k <= 8; k++ {
		n := c.Add(mooreDirs[(start+k)%8])
		if inside(n) {
			return n, prev, true
		}
		prev = n
	}
	return c, b, false
}

// TraceExternalContour follows the outer boundary of the 8-connected region
// containing start with Moore-neighbour tracing. start must be the region's
// first pixel in raster order. Runs of collinear boundary pixels collapse to
// their end points. The returned polygon is not explicitly closed.
func TraceExternalContour(inside func(image.Point) bool, start image.Point, maxSteps int) []image.Point {
	pts := make([]image.Point, 0, 32)
	addPoint := func(p image.Point) {
		n := len(pts)
		if n > 0 && pts[n-1] == p {
			return
		}
		if n >= 2 {
			a, b := pts[n-2], pts[n-1]
			v1, v2 := b.Sub(a), p.Sub(b)
			if v1.X*v2.Y-v1.Y*v2.X == 0 && v1.X*v2.X+v1.Y*v2.Y > 0 {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}

	addPoint(start)
	c, b, ok := nextBoundaryPixel(inside, start, start.Add(image.Pt(-1, 0)))
	if !ok {
		return pts
	}
	firstC, firstB := c, b

	for range maxSteps {
		addPoint(c)
		nc, nb, _ := nextBoundaryPixel(inside, c, b)
		if nc == firstC && nb == firstB {
			break
		}
		c, b = nc, nb
	}

	if len(pts) >= 2 && pts[len(pts)-1] == pts[0] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// FindExternalContours returns the outer contour of every 8-connected
// non-zero region of m, in raster order of the regions' first pixels.
func FindExternalContours(m *Mask) [][]image.Point {
	labels, comps := ConnectedComponents(m)
	out := make([][]image.Point, 0, len(comps))
	for _, c := range comps {
		out = append(out, traceComponent(labels, c))
	}
	return out
}

func traceComponent(labels *LabelField, c ComponentStats) []image.Point {
	inside := func(p image.Point) bool {
		if p.X < c.MinX || p.Y < c.MinY || p.X > c.MaxX || p.Y > c.MaxY {
			return false
		}
		return labels.Pix[p.Y*labels.W+p.X] == c.Label
	}
	return TraceExternalContour(inside, c.Seed, 4*c.Area+8)
}
