package locate

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultlens/vaultlens/internal/utils"
)

func filledFrame(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func paintRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func TestDetectPhoneScreen(t *testing.T) {
	t.Run("tiny frame rejected", func(t *testing.T) {
		assert.Nil(t, DetectPhoneScreen(filledFrame(60, 60, color.NRGBA{R: 128, G: 128, B: 128, A: 255}), nil))
	})

	t.Run("uniform black frame has no screen", func(t *testing.T) {
		assert.Nil(t, DetectPhoneScreen(filledFrame(200, 200, color.NRGBA{A: 255}), nil))
	})

	t.Run("uniform light frame has no screen", func(t *testing.T) {
		assert.Nil(t, DetectPhoneScreen(filledFrame(200, 200, color.NRGBA{R: 210, G: 210, B: 210, A: 255}), nil))
	})

	t.Run("dark panel on light background is found", func(t *testing.T) {
		frame := filledFrame(200, 200, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		panel := image.Rect(50, 40, 150, 170)
		paintRect(frame, panel, color.NRGBA{R: 25, G: 25, B: 30, A: 255})

		region := DetectPhoneScreen(frame, nil)
		require.NotNil(t, region)

		// Blur, morphology and the 1.03 inflation shift edges a little;
		// the detection must still bracket the painted panel closely.
		inner := image.Rect(60, 50, 140, 160)
		outer := image.Rect(35, 25, 165, 185)
		assert.True(t, inner.In(region.BBox), "bbox %v should cover %v", region.BBox, inner)
		assert.True(t, region.BBox.In(outer), "bbox %v should stay inside %v", region.BBox, outer)
		require.NotNil(t, region.Warped)
		wb := region.Warped.Bounds()
		assert.GreaterOrEqual(t, wb.Dx(), 40)
		assert.GreaterOrEqual(t, wb.Dy(), 40)
	})

	t.Run("warp source supplies rectified pixels", func(t *testing.T) {
		frame := filledFrame(200, 200, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		panel := image.Rect(50, 40, 150, 170)
		paintRect(frame, panel, color.NRGBA{R: 25, G: 25, B: 30, A: 255})
		source := filledFrame(200, 200, color.NRGBA{R: 255, A: 255})

		region := DetectPhoneScreen(frame, source)
		require.NotNil(t, region)
		require.NotNil(t, region.Warped)
		nrgba, ok := region.Warped.(*image.NRGBA)
		require.True(t, ok)
		c := nrgba.NRGBAAt(nrgba.Bounds().Dx()/2, nrgba.Bounds().Dy()/2)
		assert.Equal(t, uint8(255), c.R)
		assert.Equal(t, uint8(0), c.G)
	})
}

func TestWarpQuad(t *testing.T) {
	t.Run("too small output rejected", func(t *testing.T) {
		img := filledFrame(100, 100, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		quad := utils.OrderQuad([]utils.Point{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}})
		assert.Nil(t, WarpQuad(img, quad))
	})

	t.Run("axis aligned quad is a near crop", func(t *testing.T) {
		img := filledFrame(120, 100, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		paintRect(img, image.Rect(20, 20, 100, 80), color.NRGBA{R: 230, G: 10, B: 10, A: 255})

		quad := utils.OrderQuad([]utils.Point{{X: 20, Y: 20}, {X: 99, Y: 20}, {X: 99, Y: 79}, {X: 20, Y: 79}})
		out := WarpQuad(img, quad)
		require.NotNil(t, out)
		assert.Equal(t, 79, out.Bounds().Dx())
		assert.Equal(t, 59, out.Bounds().Dy())

		center := out.NRGBAAt(out.Bounds().Dx()/2, out.Bounds().Dy()/2)
		assert.Equal(t, uint8(230), center.R)
		assert.Equal(t, uint8(10), center.G)
	})
}
