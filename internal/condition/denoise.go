package condition

import (
	"image"
	"math"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// BilateralFilter smooths a grayscale image while preserving edges.
// It keeps small glyph features, like the dot of a question mark or the
// arms of an asterisk, that aggressive denoisers blur away.
func BilateralFilter(g *image.Gray, d int, sigmaColor, sigmaSpace float64) *image.Gray {
	src := utils.CloneGray(g)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	half := d / 2

	// Precompute spatial weights and a color weight LUT.
	spatial := make([]float64, d*d)
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			dist2 := float64(dx*dx + dy*dy)
			spatial[(dy+half)*d+(dx+half)] = math.Exp(-dist2 / (2 * sigmaSpace * sigmaSpace))
		}
	}
	var colorW [256]float64
	for i := range colorW {
		colorW[i] = math.Exp(-float64(i*i) / (2 * sigmaColor * sigmaColor))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := src.Pix[y*src.Stride+x]
			var sum, wsum float64
			for dy := -half; dy <= half; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -half; dx <= half; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					v := src.Pix[ny*src.Stride+nx]
					diff := int(v) - int(center)
					if diff < 0 {
						diff = -diff
					}
					wt := spatial[(dy+half)*d+(dx+half)] * colorW[diff]
					sum += wt * float64(v)
					wsum += wt
				}
			}
			if wsum > 0 {
				out.Pix[y*out.Stride+x] = uint8(sum/wsum + 0.5)
			} else {
				out.Pix[y*out.Stride+x] = center
			}
		}
	}
	return out
}

// NLMeansDenoise is a patch-based denoiser in the non-local-means
// family: each pixel is replaced by a weighted average of pixels whose
// surrounding patches look similar. The search window is kept small so
// the pass stays cheap on CPU relative to the rest of the pipeline.
func NLMeansDenoise(g *image.Gray, strength float64) *image.Gray {
	const (
		patchHalf  = 1 // 3x3 patches
		searchHalf = 4 // 9x9 search window
	)
	src := utils.CloneGray(g)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	h2 := strength * strength
	patchN := float64((2*patchHalf + 1) * (2*patchHalf + 1))

	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return float64(src.Pix[y*src.Stride+x])
	}
	patchDist := func(x0, y0, x1, y1 int) float64 {
		var d float64
		for py := -patchHalf; py <= patchHalf; py++ {
			for px := -patchHalf; px <= patchHalf; px++ {
				diff := at(x0+px, y0+py) - at(x1+px, y1+py)
				d += diff * diff
			}
		}
		return d / patchN
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, wsum float64
			for sy := -searchHalf; sy <= searchHalf; sy++ {
				for sx := -searchHalf; sx <= searchHalf; sx++ {
					dist := patchDist(x, y, x+sx, y+sy)
					wt := math.Exp(-math.Max(dist-2*h2, 0) / h2)
					sum += wt * at(x+sx, y+sy)
					wsum += wt
				}
			}
			out.Pix[y*out.Stride+x] = uint8(sum/wsum + 0.5)
		}
	}
	return out
}

// LaplacianStd returns the standard deviation of the 3x3 Laplacian
// response, a cheap sharpness measure.
func LaplacianStd(g *image.Gray) float64 {
	src := utils.CloneGray(g)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := float64(src.Pix[y*src.Stride+x])
			v := float64(src.Pix[(y-1)*src.Stride+x]) +
				float64(src.Pix[(y+1)*src.Stride+x]) +
				float64(src.Pix[y*src.Stride+x-1]) +
				float64(src.Pix[y*src.Stride+x+1]) - 4*c
			sum += v
			sumSq += v * v
			n++
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
