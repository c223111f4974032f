package segment

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldWithRects(w, h int, rects map[int32][]image.Rectangle) *LabelField {
	f := NewLabelField(w, h)
	for i := range f.Pix {
		f.Pix[i] = LabelBackground
	}
	for label, rs := range rects {
		for _, r := range rs {
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					f.Pix[y*w+x] = label
				}
			}
		}
	}
	return f
}

func TestTraceExternalContour_Rectangle(t *testing.T) {
	f := fieldWithRects(12, 9, map[int32][]image.Rectangle{2: {image.Rect(1, 1, 10, 7)}})
	res, err := Extract(f, nil)
	require.NoError(t, err)
	require.Len(t, res.Wells, 1)

	w := res.Wells[0]
	assert.Equal(t, []image.Point{{1, 1}, {9, 1}, {9, 6}, {1, 6}}, w.Contour)
	assert.InDelta(t, 40, w.Area, 1e-9)
	assert.Equal(t, image.Pt(5, 3), w.Center)
	assert.Equal(t, 1, w.Index)
	assert.Equal(t, int32(2), w.Label)
}

func TestExtract_RepeatedCallsAgree(t *testing.T) {
	rects := map[int32][]image.Rectangle{
		2: {image.Rect(1, 1, 8, 8)},
		3: {image.Rect(12, 2, 18, 9), image.Rect(2, 12, 6, 16)},
	}
	first, err := Extract(fieldWithRects(20, 18, rects), nil)
	require.NoError(t, err)
	require.Len(t, first.Wells, 3)

	// scratch buffers are reused between calls; no piece ids may leak
	for range 3 {
		again, err := Extract(fieldWithRects(20, 18, rects), nil)
		require.NoError(t, err)
		assert.Equal(t, first.Wells, again.Wells)
	}
	small, err := Extract(fieldWithRects(10, 10, map[int32][]image.Rectangle{2: {image.Rect(2, 2, 6, 6)}}), nil)
	require.NoError(t, err)
	require.Len(t, small.Wells, 1)
	assert.Equal(t, image.Pt(3, 3), small.Wells[0].Center)
}

func TestTraceExternalContour_ThinShapes(t *testing.T) {
	line := maskFromRows(
		"......",
		"..###.",
		"......",
	)
	contours := FindExternalContours(line)
	require.Len(t, contours, 1)
	assert.Equal(t, []image.Point{{2, 1}, {4, 1}}, contours[0])

	dot := maskFromRows("...", ".#.", "...")
	contours = FindExternalContours(dot)
	require.Len(t, contours, 1)
	assert.Equal(t, []image.Point{{1, 1}}, contours[0])
}

func TestTraceExternalContour_IgnoresHoles(t *testing.T) {
	ring := maskFromRows(
		".......",
		".#####.",
		".#...#.",
		".#...#.",
		".#####.",
		".......",
	)
	contours := FindExternalContours(ring)
	require.Len(t, contours, 1)
	assert.Equal(t, []image.Point{{1, 1}, {5, 1}, {5, 4}, {1, 4}}, contours[0])
}

func TestExtract_MaxAreaFilter(t *testing.T) {
	// Shoelace areas: (10-1)*(7-2) = 40 and (35-15)*(21-11) = 200.
	f := fieldWithRects(40, 30, map[int32][]image.Rectangle{
		2: {image.Rect(1, 2, 10, 8)},
		3: {image.Rect(15, 11, 36, 22)},
	})
	maxArea := 50.0

	res, err := Extract(f, &maxArea)
	require.NoError(t, err)
	require.Len(t, res.Wells, 1)
	assert.InDelta(t, 40, res.Wells[0].Area, 1e-9)
	assert.Equal(t, 1, res.Oversized)

	res, err = Extract(f, nil)
	require.NoError(t, err)
	require.Len(t, res.Wells, 2)
	assert.InDelta(t, 200, res.Wells[1].Area, 1e-9)
}

func TestExtract_OrderAndReservedLabels(t *testing.T) {
	f := fieldWithRects(30, 30, map[int32][]image.Rectangle{
		3: {image.Rect(2, 2, 8, 8)},
		2: {image.Rect(20, 20, 26, 26), image.Rect(20, 2, 26, 8)},
	})
	f.Pix[15*30+15] = LabelBoundary
	f.Pix[15*30+16] = LabelUnknown

	res, err := Extract(f, nil)
	require.NoError(t, err)
	require.Len(t, res.Wells, 3)

	assert.Equal(t, int32(2), res.Wells[0].Label)
	assert.Equal(t, image.Pt(22, 4), res.Wells[0].Center, "upper piece of label 2 is discovered first")
	assert.Equal(t, int32(2), res.Wells[1].Label)
	assert.Equal(t, image.Pt(22, 22), res.Wells[1].Center)
	assert.Equal(t, int32(3), res.Wells[2].Label)
	for i, w := range res.Wells {
		assert.Equal(t, i+1, w.Index)
	}
}

func TestExtract_DegenerateSkipped(t *testing.T) {
	f := fieldWithRects(20, 10, map[int32][]image.Rectangle{
		2: {image.Rect(2, 2, 3, 3)},
		3: {image.Rect(5, 5, 12, 6)},
		4: {image.Rect(14, 2, 18, 6)},
	})
	res, err := Extract(f, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Degenerate)
	require.Len(t, res.Wells, 1)
	assert.Equal(t, int32(4), res.Wells[0].Label)
	assert.Equal(t, 1, res.Wells[0].Index)
}

func TestExtract_Validation(t *testing.T) {
	_, err := Extract(nil, nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	zero := 0.0
	_, err = Extract(NewLabelField(3, 3), &zero)
	require.ErrorIs(t, err, ErrConfiguration)

	res, err := Extract(&LabelField{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Wells)
}

func TestWell_Translate(t *testing.T) {
	w := Well{Contour: []image.Point{{0, 0}, {2, 0}, {2, 2}}, Center: image.Pt(1, 1)}
	moved := w.Translate(image.Pt(10, 5))
	assert.Equal(t, image.Pt(11, 6), moved.Center)
	assert.Equal(t, image.Pt(12, 5), moved.Contour[1])
	assert.Equal(t, image.Pt(2, 0), w.Contour[1], "original untouched")
}

func TestContourMoments(t *testing.T) {
	square := []image.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	m := ContourMoments(square)
	assert.InDelta(t, 16, m.M00, 1e-9)
	c, ok := m.Centroid()
	require.True(t, ok)
	assert.Equal(t, image.Pt(2, 2), c)

	reversed := []image.Point{{0, 4}, {4, 4}, {4, 0}, {0, 0}}
	assert.Equal(t, m, ContourMoments(reversed))

	_, ok = ContourMoments([]image.Point{{1, 1}, {3, 1}}).Centroid()
	assert.False(t, ok)

	assert.Equal(t, image.Rect(0, 0, 5, 5), ContourBounds(square))
}
