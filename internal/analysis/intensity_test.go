package analysis

import (
	"image"
	"math"
	"testing"

	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/testutil"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillMask_Rectangle(t *testing.T) {
	square := []image.Point{{2, 2}, {6, 2}, {6, 5}, {2, 5}}
	mask := FillMask(image.Rect(0, 0, 10, 10), square)

	assert.Equal(t, image.Rect(2, 2, 7, 6), mask.Rect)
	count := 0
	for _, a := range mask.Pix {
		if a != 0 {
			count++
		}
	}
	assert.Equal(t, 20, count, "interior plus outline of a 5x4 block")
}

func TestFillMask_Diamond(t *testing.T) {
	diamond := []image.Point{{5, 1}, {9, 5}, {5, 9}, {1, 5}}
	mask := FillMask(image.Rect(0, 0, 12, 12), diamond)

	on := func(x, y int) bool { return mask.AlphaAt(x, y).A != 0 }
	assert.True(t, on(5, 5))
	assert.True(t, on(5, 1))
	assert.True(t, on(3, 3), "outline pixel")
	assert.False(t, on(2, 2))
	assert.False(t, on(1, 1))
}

func TestMeanIntensity_UniformRegion(t *testing.T) {
	gray := &segment.Gray{W: 10, H: 10, Pix: make([]uint8, 100)}
	for y := range 10 {
		for x := range 10 {
			v := uint8(200)
			if x >= 2 && x <= 6 && y >= 2 && y <= 5 {
				v = 80
			}
			gray.Pix[y*10+x] = v
		}
	}
	square := []image.Point{{2, 2}, {6, 2}, {6, 5}, {2, 5}}

	assert.InDelta(t, 80, MeanIntensity(gray, square), 1e-9)
	st := ContourStats(gray, square)
	assert.Equal(t, 20, st.Pixels)
	assert.InDelta(t, 0, st.StdDev, 1e-9)
	assert.InDelta(t, 80, st.Min, 1e-9)
}

func TestMeanIntensity_EmptyMask(t *testing.T) {
	gray := &segment.Gray{W: 4, H: 4, Pix: make([]uint8, 16)}
	assert.Zero(t, MeanIntensity(gray, nil))
	assert.Zero(t, MeanIntensity(gray, []image.Point{{20, 20}, {25, 20}, {25, 25}}))
	assert.Zero(t, MeanIntensity(&segment.Gray{}, []image.Point{{0, 0}}))
	assert.Equal(t, segment.IntensityStats{}, ContourStats(gray, nil))
}

func TestAnalyze_DiskWells(t *testing.T) {
	img := testutil.DiskImage(90, 50, 250,
		testutil.Disk{Center: image.Pt(22, 25), Radius: 12, Value: 40},
		testutil.Disk{Center: image.Pt(65, 25), Radius: 12, Value: 90},
	)
	pre, err := segment.Preprocess(img, segment.DefaultPreprocessOptions())
	require.NoError(t, err)
	mk, err := segment.BuildMarkers(pre.Mask, pre.Kernel, segment.DefaultMarkerOptions())
	require.NoError(t, err)
	field, err := segment.Watershed(img, mk.Field)
	require.NoError(t, err)
	res, err := segment.Extract(field, nil)
	require.NoError(t, err)
	require.Len(t, res.Wells, 2)

	Analyze(pre.Gray, res.Wells)

	assert.InDelta(t, 40, res.Wells[0].MeanIntensity, 1e-9)
	assert.InDelta(t, 90, res.Wells[1].MeanIntensity, 1e-9)
	require.NotNil(t, res.Wells[0].Stats)
	assert.Greater(t, res.Wells[0].Stats.Pixels, 300)
}

func TestMeanIntensity_Bounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("mean intensity stays within [0,255]", prop.ForAll(
		func(seed int, x0, y0, w, h int) bool {
			gray := &segment.Gray{W: 32, H: 32, Pix: make([]uint8, 32*32)}
			for i := range gray.Pix {
				gray.Pix[i] = uint8((i*seed + 17) % 256)
			}
			contour := []image.Point{{x0, y0}, {x0 + w, y0}, {x0 + w, y0 + h}, {x0, y0 + h}}
			m := MeanIntensity(gray, contour)
			return !math.IsNaN(m) && m >= 0 && m <= 255
		},
		gen.IntRange(1, 1000),
		gen.IntRange(-5, 30),
		gen.IntRange(-5, 30),
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

func TestSummarize(t *testing.T) {
	wells := []segment.Well{
		{MeanIntensity: 10, Area: 100},
		{MeanIntensity: 30, Area: 200},
		{MeanIntensity: 20, Area: 300},
	}
	s := Summarize(wells)

	assert.Equal(t, 3, s.Wells)
	assert.InDelta(t, 20, s.Mean, 1e-9)
	assert.InDelta(t, 10, s.StdDev, 1e-9)
	assert.InDelta(t, 20, s.Median, 1e-9)
	assert.InDelta(t, 10, s.Min, 1e-9)
	assert.InDelta(t, 30, s.Max, 1e-9)
	assert.InDelta(t, 200, s.MeanArea, 1e-9)
	assert.InDelta(t, 30, wells[1].MeanIntensity, 1e-9, "input not reordered")

	assert.Equal(t, Summary{}, Summarize(nil))
}
