package segment

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGray_Luma(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(2, 0, color.RGBA{B: 255, A: 255})

	g := ToGray(img)
	require.Equal(t, 3, g.W)
	assert.Equal(t, []uint8{76, 150, 29}, g.Pix)
}

func TestToGray_SubImageKeepsOrigin(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	sub, ok := src.SubImage(image.Rect(2, 3, 5, 6)).(*image.Gray)
	require.True(t, ok)

	g := ToGray(sub)
	require.Equal(t, 3, g.W)
	require.Equal(t, 3, g.H)
	assert.Equal(t, uint8(32), g.Pix[0])
	assert.Equal(t, uint8(54), g.Pix[8])

	rgba := image.NewRGBA(image.Rect(0, 0, 10, 10))
	rgba.Set(4, 4, color.White)
	p := planes(rgba.SubImage(image.Rect(4, 4, 6, 6)))
	require.Len(t, p, 3)
	assert.Equal(t, uint8(255), p[0][0])
	assert.Equal(t, uint8(0), p[0][1])
}

func TestLabelField_Labels(t *testing.T) {
	f := &LabelField{W: 3, H: 2, Pix: []int32{3, 1, -1, 2, 1, 3}}
	assert.Equal(t, []int32{-1, 1, 2, 3}, f.Labels())
	assert.Equal(t, LabelBoundary, f.At(-1, 0))
}

func TestGray_ImageRoundTrip(t *testing.T) {
	g := &Gray{W: 2, H: 2, Pix: []uint8{1, 2, 3, 4}}
	img := g.Image()
	assert.Equal(t, g.Pix, ToGray(img).Pix)
	assert.Equal(t, 4, g.Count())
	assert.True(t, (&Gray{}).Empty())
}
