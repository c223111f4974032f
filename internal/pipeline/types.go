package pipeline

import (
	"image"

	"github.com/cyber-run/floro/internal/segment"
)

// Box is an axis-aligned rectangle in image coordinates.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// BoxFromRect converts an image.Rectangle.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect converts back to an image.Rectangle.
func (b Box) Rect() image.Rectangle { return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H) }

// Timing records per-stage durations of one run.
type Timing struct {
	PreprocessNs int64 `json:"preprocess_ns"`
	MarkersNs    int64 `json:"markers_ns"`
	WatershedNs  int64 `json:"watershed_ns"`
	ExtractNs    int64 `json:"extract_ns"`
	AnalyzeNs    int64 `json:"analyze_ns"`
	TotalNs      int64 `json:"total_ns"`
}

// Result is the per-region segmentation output. Well coordinates are in the
// coordinate system of the input image.
type Result struct {
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	ROI       Box            `json:"roi"`
	Threshold uint8          `json:"threshold"`
	Seeds     int            `json:"seeds"`
	Wells     []segment.Well `json:"wells"`
	// Degenerate counts contours skipped for zero area.
	Degenerate int `json:"degenerate"`
	// Oversized counts contours removed by the area filter.
	Oversized  int    `json:"oversized"`
	Processing Timing `json:"processing"`

	// Labels is the watershed label field of the ROI, origin at ROI.Min.
	Labels *segment.LabelField `json:"-"`
	// Annotated is set when Config.Annotate is enabled.
	Annotated *image.RGBA `json:"-"`
}
