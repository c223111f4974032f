package segment

import (
	"cmp"
	"image"
	"slices"

	"github.com/cyber-run/floro/internal/mempool"
)

// IntensityStats summarises the grayscale samples under a filled contour.
type IntensityStats struct {
	Pixels int     `json:"pixels"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Well is one segmented object. Index is 1-based in extraction order.
type Well struct {
	Index         int             `json:"index"`
	Label         int32           `json:"label"`
	Contour       []image.Point   `json:"contour"`
	Center        image.Point     `json:"center"`
	Area          float64         `json:"area"`
	MeanIntensity float64         `json:"mean_intensity"`
	Stats         *IntensityStats `json:"stats,omitempty"`
}

// Translate returns a copy of the well shifted by d.
func (w Well) Translate(d image.Point) Well {
	if d == (image.Point{}) {
		return w
	}
	out := w
	out.Contour = make([]image.Point, len(w.Contour))
	for i, p := range w.Contour {
		out.Contour[i] = p.Add(d)
	}
	out.Center = w.Center.Add(d)
	return out
}

// Extraction is the result of contour extraction.
type Extraction struct {
	Wells []Well
	// Degenerate counts contours dropped for zero enclosed area.
	Degenerate int
	// Oversized counts contours dropped by the area filter.
	Oversized int
}

// Extract traces the external contours of every object label in markers and
// turns them into wells. Labels below LabelFirstObject are skipped. With
// maxArea set, only contours whose area is strictly below it are kept.
// Contours without area are counted in Degenerate and skipped.
func Extract(markers *LabelField, maxArea *float64) (*Extraction, error) {
	if markers == nil || len(markers.Pix) != markers.W*markers.H {
		return nil, invalidInput("extract", "marker field is missing or malformed")
	}
	if maxArea != nil && !(*maxArea > 0) {
		return nil, invalidConfig("extract", "max area must be > 0, got %g", *maxArea)
	}

	res := &Extraction{}
	if markers.W == 0 || markers.H == 0 {
		return res, nil
	}

	// Split every label into its 8-connected pieces; piece ids follow raster order.
	pieces := &LabelField{W: markers.W, H: markers.H, Pix: mempool.Int32.Get(markers.W * markers.H)}
	defer mempool.Int32.Put(pieces.Pix)
	in := func(i int) bool { return markers.Pix[i] >= LabelFirstObject }
	join := func(from, to int) bool { return markers.Pix[to] == markers.Pix[from] }
	comps := labelComponents(pieces, markers.W, markers.H, in, join)

	order := make([]int, len(comps))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		la := markers.Pix[comps[a].Seed.Y*markers.W+comps[a].Seed.X]
		lb := markers.Pix[comps[b].Seed.Y*markers.W+comps[b].Seed.X]
		return cmp.Compare(la, lb)
	})

	for _, ci := range order {
		c := comps[ci]
		contour := traceComponent(pieces, c)
		m := ContourMoments(contour)
		center, ok := m.Centroid()
		if !ok {
			res.Degenerate++
			continue
		}
		area := ContourArea(contour)
		if maxArea != nil && area >= *maxArea {
			res.Oversized++
			continue
		}
		res.Wells = append(res.Wells, Well{
			Index:   len(res.Wells) + 1,
			Label:   markers.Pix[c.Seed.Y*markers.W+c.Seed.X],
			Contour: contour,
			Center:  center,
			Area:    area,
		})
	}
	return res, nil
}
