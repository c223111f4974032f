package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RectFromCorners returns the rectangle spanned by two corner points given in
// any drag direction. The far corner is inclusive.
func RectFromCorners(a, b image.Point) image.Rectangle {
	r := image.Rectangle{Min: a, Max: b}.Canon()
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}

// ParseRect parses "x0,y0,x1,y1" into a rectangle. The corners may come in any
// order and the second one is inclusive, matching RectFromCorners.
func ParseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("rectangle %q: expected x0,y0,x1,y1", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("rectangle %q: %w", s, err)
		}
		if n < 0 {
			return image.Rectangle{}, fmt.Errorf("rectangle %q: negative coordinate %d", s, n)
		}
		v[i] = n
	}
	return RectFromCorners(image.Pt(v[0], v[1]), image.Pt(v[2], v[3])), nil
}

// FormatRect is the inverse of ParseRect.
func FormatRect(r image.Rectangle) string {
	if r.Empty() {
		return ""
	}
	return fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// CropImageRect crops an image to the given rectangle. The result keeps the
// source coordinate system, so rect.Min is its origin.
func CropImageRect(img image.Image, rect image.Rectangle) (image.Image, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("crop %v is outside image bounds %v", rect, img.Bounds())
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(rect), nil
	}
	cropped := imaging.Crop(img, rect)
	cropped.Rect = cropped.Rect.Add(rect.Min)
	return cropped, nil
}

// CloneRGBA copies img into a new RGBA image with the same bounds.
func CloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst *image.RGBA, pts []image.Point, col color.Color, thickness int) {
	switch len(pts) {
	case 0:
		return
	case 1:
		drawThickPoint(dst, pts[0].X, pts[0].Y, col, thickness)
		return
	}
	for i := range pts {
		drawLine(dst, pts[i], pts[(i+1)%len(pts)], col, thickness)
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawThickPoint stamps a thickness x thickness square whose top-left pixel
// sits (thickness-1)/2 above and left of (x, y).
func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	lo := (thickness - 1) / 2
	hi := thickness / 2
	for yy := y - lo; yy <= y+hi; yy++ {
		for xx := x - lo; xx <= x+hi; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

// DrawLabel renders text in the 7x13 bitmap face, centred on center.
func DrawLabel(dst draw.Image, text string, center image.Point, col color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	m := face.Metrics()
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(center.X) - width/2,
		Y: fixed.I(center.Y) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
}

// DrawLabelBold draws text weight times, shifting one pixel right each pass.
func DrawLabelBold(dst draw.Image, text string, center image.Point, col color.Color, weight int) {
	for i := range max(weight, 1) {
		DrawLabel(dst, text, center.Add(image.Pt(i, 0)), col)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
