package condition

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultlens/vaultlens/internal/utils"
)

func flatGray(w, h int, fill uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = fill
	}
	return g
}

// brightOnDark paints bright stripes on a near-black background, the
// luminance signature of a phone screen crop.
func brightOnDark(w, h int) *image.Gray {
	g := flatGray(w, h, 15)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/6)%2 == 0 && y > h/3 && y < 2*h/3 {
				g.Pix[y*g.Stride+x] = 240
			}
		}
	}
	return g
}

func TestClassify(t *testing.T) {
	t.Run("dark screen with bright text", func(t *testing.T) {
		assert.Equal(t, RegimeBrightOnDark, Classify(brightOnDark(120, 60)))
	})

	t.Run("flat light background", func(t *testing.T) {
		assert.Equal(t, RegimeNormal, Classify(flatGray(120, 60, 200)))
	})

	t.Run("flat dark background lacks spread", func(t *testing.T) {
		assert.Equal(t, RegimeNormal, Classify(flatGray(120, 60, 40)))
	})
}

func TestSpeckleRatio(t *testing.T) {
	t.Run("empty mask", func(t *testing.T) {
		assert.Equal(t, 0.0, SpeckleRatio(flatGray(20, 20, 0)))
	})

	t.Run("one solid blob has no speckle", func(t *testing.T) {
		g := flatGray(20, 20, 0)
		for y := 5; y < 15; y++ {
			for x := 5; x < 15; x++ {
				g.Pix[y*g.Stride+x] = 255
			}
		}
		assert.Equal(t, 0.0, SpeckleRatio(g))
	})

	t.Run("isolated dots count as speckle", func(t *testing.T) {
		g := flatGray(20, 20, 0)
		for y := 5; y < 13; y++ {
			for x := 5; x < 13; x++ {
				g.Pix[y*g.Stride+x] = 255
			}
		}
		g.Pix[1*g.Stride+1] = 255
		g.Pix[18*g.Stride+18] = 255
		ratio := SpeckleRatio(g)
		assert.InDelta(t, 2.0/66.0, ratio, 1e-9)
	})
}

func TestQualityScore(t *testing.T) {
	flat := QualityScore(flatGray(60, 60, 128))
	textured := QualityScore(brightOnDark(60, 60))
	assert.Equal(t, 0.0, flat)
	assert.Greater(t, textured, flat)
}

func TestGammaForMean(t *testing.T) {
	tests := []struct {
		name string
		mean float64
		want float64
	}{
		{"very dark", 60, 0.75},
		{"dark", 100, 0.85},
		{"mid", 140, 1.0},
		{"bright", 180, 1.15},
		{"very bright", 220, 1.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, gammaForMean(tt.mean), 1e-9)
		})
	}
}

func TestApplyGamma(t *testing.T) {
	t.Run("dark image is lifted", func(t *testing.T) {
		src := flatGray(16, 16, 50)
		out := utils.ToGray(ApplyGamma(src, 50))
		assert.Greater(t, out.Pix[0], uint8(50))
	})

	t.Run("bright image is tamed", func(t *testing.T) {
		src := flatGray(16, 16, 220)
		out := utils.ToGray(ApplyGamma(src, 220))
		assert.Less(t, out.Pix[0], uint8(220))
	})
}

func TestBuildInputs(t *testing.T) {
	t.Run("bright on dark regime and default scale", func(t *testing.T) {
		v := BuildInputs(brightOnDark(120, 60), 0)
		assert.Equal(t, RegimeBrightOnDark, v.Regime)
		assert.InDelta(t, 3.0, v.Scale, 1e-9)
		require.NotNil(t, v.Raw)
		require.NotNil(t, v.Enhanced)
		require.NotNil(t, v.BinInv)
		require.NotNil(t, v.SharpInv)
		assert.Equal(t, 360, v.Raw.Bounds().Dx())
		assert.Equal(t, 180, v.Raw.Bounds().Dy())
	})

	t.Run("normal regime and default scale", func(t *testing.T) {
		v := BuildInputs(flatGray(100, 50, 200), 0)
		assert.Equal(t, RegimeNormal, v.Regime)
		assert.InDelta(t, 2.0, v.Scale, 1e-9)
		require.NotNil(t, v.Raw)
		require.NotNil(t, v.Enhanced)
		assert.Nil(t, v.SharpInv)
		assert.Equal(t, 200, v.Raw.Bounds().Dx())
	})

	t.Run("scale override wins", func(t *testing.T) {
		v := BuildInputs(brightOnDark(100, 50), 2.0)
		assert.InDelta(t, 2.0, v.Scale, 1e-9)
		assert.Equal(t, 200, v.Raw.Bounds().Dx())
	})
}
