package segment

import (
	"image"
	"math"
)

// Moments holds the spatial moments of a polygon up to first order.
type Moments struct {
	M00, M10, M01 float64
}

// ContourMoments integrates the polygon's area moments with Green's theorem.
// The sign is normalised so M00 is never negative.
func ContourMoments(contour []image.Point) Moments {
	var m Moments
	n := len(contour)
	if n < 3 {
		return m
	}
	for i := range n {
		p, q := contour[i], contour[(i+1)%n]
		xi, yi := float64(p.X), float64(p.Y)
		xj, yj := float64(q.X), float64(q.Y)
		a := xi*yj - xj*yi
		m.M00 += a
		m.M10 += a * (xi + xj)
		m.M01 += a * (yi + yj)
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}

// Centroid returns (M10/M00, M01/M00) truncated towards zero. ok is false
// when M00 is zero.
func (m Moments) Centroid() (image.Point, bool) {
	if m.M00 == 0 {
		return image.Point{}, false
	}
	return image.Pt(int(m.M10/m.M00), int(m.M01/m.M00)), true
}

// ContourArea is the absolute shoelace area of the polygon.
func ContourArea(contour []image.Point) float64 {
	n := len(contour)
	if n < 3 {
		return 0
	}
	var s float64
	for i := range n {
		p, q := contour[i], contour[(i+1)%n]
		s += float64(p.X*q.Y - q.X*p.Y)
	}
	return math.Abs(s) / 2
}

// ContourBounds returns the smallest rectangle holding every vertex, with an
// exclusive max corner.
func ContourBounds(contour []image.Point) image.Rectangle {
	if len(contour) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: contour[0], Max: contour[0]}
	for _, p := range contour[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}
