package pipeline

import (
	"image"
	"image/color"
	"strconv"

	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/utils"
)

// Overlay colours.
var (
	OutlineColor  = color.RGBA{G: 255, A: 255}
	LabelColor    = color.RGBA{B: 255, A: 255}
	BoundaryColor = color.RGBA{R: 255, A: 255}
)

// OutlineThickness is the contour stroke width in pixels.
const OutlineThickness = 2

// Annotate draws every well outline and its 1-based index onto a copy of img,
// well by well, so later wells paint over earlier ones. Wells must be in img's
// coordinate system. img is not modified.
func Annotate(img image.Image, wells []segment.Well) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.CloneRGBA(img)
	for _, w := range wells {
		utils.DrawPolygon(dst, w.Contour, OutlineColor, OutlineThickness)
		utils.DrawLabelBold(dst, strconv.Itoa(w.Index), w.Center, LabelColor, OutlineThickness)
	}
	return dst
}

// OverlayBoundaries paints the watershed ridge pixels of labels red on a copy
// of img. labels covers roi, with its origin at roi.Min.
func OverlayBoundaries(img image.Image, labels *segment.LabelField, roi image.Rectangle) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.CloneRGBA(img)
	if labels == nil {
		return dst
	}
	area := roi.Intersect(dst.Bounds()).Intersect(image.Rect(0, 0, labels.W, labels.H).Add(roi.Min))
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if labels.At(x-roi.Min.X, y-roi.Min.Y) == segment.LabelBoundary {
				dst.SetRGBA(x, y, BoundaryColor)
			}
		}
	}
	return dst
}
