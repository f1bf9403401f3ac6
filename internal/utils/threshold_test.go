package utils

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func grayFrom(w, h int, fill uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = fill
	}
	return g
}

func TestOtsuThreshold(t *testing.T) {
	t.Run("bimodal image splits between modes", func(t *testing.T) {
		g := grayFrom(10, 10, 30)
		for y := 0; y < 10; y++ {
			for x := 5; x < 10; x++ {
				g.Pix[y*g.Stride+x] = 220
			}
		}
		thr := OtsuThreshold(g)
		assert.Greater(t, thr, uint8(30))
		assert.Less(t, thr, uint8(220))
	})

	t.Run("uniform image", func(t *testing.T) {
		thr := OtsuThreshold(grayFrom(8, 8, 100))
		assert.LessOrEqual(t, thr, uint8(100))
	})
}

func TestBinarize(t *testing.T) {
	g := grayFrom(4, 1, 0)
	g.Pix[0], g.Pix[1], g.Pix[2], g.Pix[3] = 10, 100, 150, 250

	t.Run("above", func(t *testing.T) {
		m := BinarizeAbove(g, 150)
		assert.Equal(t, []uint8{0, 0, 255, 255}, m.Pix)
	})

	t.Run("below", func(t *testing.T) {
		m := BinarizeBelow(g, 150)
		assert.Equal(t, []uint8{255, 255, 0, 0}, m.Pix)
	})

	t.Run("masks are complements", func(t *testing.T) {
		above := BinarizeAbove(g, 120)
		below := BinarizeBelow(g, 120)
		assert.Equal(t, 4, CountNonZero(above)+CountNonZero(below))
	})
}

func TestAdaptiveThreshold(t *testing.T) {
	// A bright spot on a flat background is the only pixel exceeding
	// its local mean by more than c.
	g := grayFrom(32, 32, 80)
	g.Pix[16*g.Stride+16] = 255
	m := AdaptiveThreshold(g, 31, 2)
	assert.Equal(t, uint8(255), m.Pix[16*m.Stride+16])
	assert.Equal(t, uint8(0), m.Pix[2*m.Stride+2])
}

func TestAndMask(t *testing.T) {
	a := grayFrom(3, 1, 0)
	b := grayFrom(3, 1, 0)
	a.Pix[0], a.Pix[1] = 255, 255
	b.Pix[1], b.Pix[2] = 255, 255
	m := AndMask(a, b)
	assert.Equal(t, []uint8{0, 255, 0}, m.Pix)
}

func TestCountNonZero(t *testing.T) {
	g := grayFrom(4, 4, 0)
	assert.Equal(t, 0, CountNonZero(g))
	g.Pix[0], g.Pix[5] = 255, 1
	assert.Equal(t, 2, CountNonZero(g))
}

func TestConnectedComponents(t *testing.T) {
	t.Run("empty mask", func(t *testing.T) {
		assert.Empty(t, ConnectedComponents(grayFrom(8, 8, 0)))
	})

	t.Run("two separate blobs", func(t *testing.T) {
		g := grayFrom(20, 10, 0)
		for y := 1; y < 4; y++ {
			for x := 1; x < 5; x++ {
				g.Pix[y*g.Stride+x] = 255
			}
		}
		for y := 6; y < 9; y++ {
			for x := 12; x < 18; x++ {
				g.Pix[y*g.Stride+x] = 255
			}
		}
		comps := ConnectedComponents(g)
		assert.Len(t, comps, 2)
		assert.Equal(t, 12, comps[0].Area)
		assert.Equal(t, image.Rect(1, 1, 5, 4), comps[0].Rect)
		assert.Equal(t, 18, comps[1].Area)
		assert.Equal(t, image.Rect(12, 6, 18, 9), comps[1].Rect)
		assert.NotEmpty(t, comps[0].Boundary)
	})

	t.Run("diagonal pixels connect", func(t *testing.T) {
		g := grayFrom(4, 4, 0)
		g.Pix[0*g.Stride+0] = 255
		g.Pix[1*g.Stride+1] = 255
		g.Pix[2*g.Stride+2] = 255
		comps := ConnectedComponents(g)
		assert.Len(t, comps, 1)
		assert.Equal(t, 3, comps[0].Area)
	})
}
