package locate

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// minWarpSide is the smallest rectified output worth recognizing.
const minWarpSide = 40

// WarpQuad perspective-unwarps the quadrilateral region of img into an
// upright rectangle sized to the quad's measured edges using inverse
// homography and bilinear sampling with a replicated border. Returns
// nil when the output would be smaller than 40x40.
func WarpQuad(img image.Image, quad utils.Quad) *image.NRGBA {
	qw, qh := quad.EdgeLengths()
	outW := int(math.Round(qw))
	outH := int(math.Round(qh))
	if outW < minWarpSide || outH < minWarpSide {
		return nil
	}

	// Homography from the upright destination rectangle back into the
	// source quad, so every destination pixel maps to a source sample.
	dst := [4]utils.Point{
		{X: 0, Y: 0},
		{X: float64(outW - 1), Y: 0},
		{X: float64(outW - 1), Y: float64(outH - 1)},
		{X: 0, Y: float64(outH - 1)},
	}
	h, ok := computeHomography(dst, [4]utils.Point(quad))
	if !ok {
		return nil
	}

	src := imaging.Clone(img)
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			sx, sy := applyHomography(h, float64(x), float64(y))
			sx = clampF(sx, 0, float64(sw-1))
			sy = clampF(sy, 0, float64(sh-1))
			out.SetNRGBA(x, y, sampleBilinear(src, sx, sy))
		}
	}
	return out
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sampleBilinear(src *image.NRGBA, x, y float64) (c color.NRGBA) {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	if x1 >= w {
		x1 = w - 1
	}
	y1 := y0 + 1
	if y1 >= h {
		y1 = h - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	p00 := src.NRGBAAt(x0, y0)
	p10 := src.NRGBAAt(x1, y0)
	p01 := src.NRGBAAt(x0, y1)
	p11 := src.NRGBAAt(x1, y1)
	mix := func(a, b uint8, t float64) float64 { return float64(a)*(1-t) + float64(b)*t }
	c.R = uint8(mix(p00.R, p10.R, fx)*(1-fy) + mix(p01.R, p11.R, fx)*fy + 0.5)
	c.G = uint8(mix(p00.G, p10.G, fx)*(1-fy) + mix(p01.G, p11.G, fx)*fy + 0.5)
	c.B = uint8(mix(p00.B, p10.B, fx)*(1-fy) + mix(p01.B, p11.B, fx)*fy + 0.5)
	c.A = 255
	return c
}
