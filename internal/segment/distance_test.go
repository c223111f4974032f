package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceTransform_SingleSeed(t *testing.T) {
	m := NewGray(7, 7)
	for i := range m.Pix {
		m.Pix[i] = MaskOn
	}
	m.Pix[3*7+3] = MaskOff

	d := DistanceTransform(m)

	at := func(x, y int) float64 { return float64(d.Pix[y*7+x]) }
	assert.InDelta(t, 0, at(3, 3), 1e-6)
	assert.InDelta(t, chamferA, at(4, 3), 1e-6)
	assert.InDelta(t, chamferB, at(4, 4), 1e-6)
	assert.InDelta(t, chamferC, at(5, 4), 1e-5)
	assert.InDelta(t, 3, at(0, 3), 1e-6)
	assert.InDelta(t, 3*chamferB, at(0, 0), 1e-5)
	assert.InDelta(t, 3*chamferB, float64(d.Max()), 1e-5)
}

func TestDistanceTransform_NoBackground(t *testing.T) {
	m := NewGray(3, 3)
	for i := range m.Pix {
		m.Pix[i] = MaskOn
	}
	d := DistanceTransform(m)
	for _, v := range d.Pix {
		assert.True(t, math.IsInf(float64(v), 1))
	}
}

func TestDistanceTransform_AllBackground(t *testing.T) {
	d := DistanceTransform(NewGray(5, 4))
	assert.Zero(t, d.Max())
	assert.Len(t, d.Pix, 20)
}

func TestDistanceTransform_DiskPeaksAtCentre(t *testing.T) {
	m := NewGray(41, 41)
	for y := range 41 {
		for x := range 41 {
			dx, dy := x-20, y-20
			if dx*dx+dy*dy <= 15*15 {
				m.Pix[y*41+x] = MaskOn
			}
		}
	}
	d := DistanceTransform(m)

	centre := float64(d.Pix[20*41+20])
	assert.InDelta(t, 15.2, centre, 0.2)
	assert.InDelta(t, centre, float64(d.Max()), 1e-6)
}
