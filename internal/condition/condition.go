// Package condition turns a crop into several deliberately diverse
// grayscale renderings so that at least one suits the crop's contrast
// and polarity.
package condition

import (
	"image"
	"math"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// Regime selects which conditioning and recovery strategy set applies.
type Regime int

const (
	// RegimeNormal is ordinary lighting: dark text on a light surface.
	RegimeNormal Regime = iota
	// RegimeBrightOnDark is light text on a near-black screen.
	RegimeBrightOnDark
)

// Variants are the preprocessed renderings of one crop. SharpInv is
// only produced in the bright-on-dark regime.
type Variants struct {
	Raw      *image.Gray // denoised grayscale
	Enhanced *image.Gray // contrast-enhanced
	BinInv   *image.Gray // binarized, dark-text-on-light polarity
	Norm     *image.Gray // illumination-normalized
	SharpInv *image.Gray // sharpened inverted polarity (bright-on-dark only)
	Regime   Regime
	Scale    float64
}

// Classify detects the lighting regime from luminance statistics: a low
// mean with high spread is the signature of bright text on a dark
// screen.
func Classify(gray *image.Gray) Regime {
	mean, std := utils.MeanStd(gray)
	if mean < 110 && std > 40 {
		return RegimeBrightOnDark
	}
	return RegimeNormal
}

// SpeckleRatio estimates how much of a binary image's foreground is
// isolated noise: the fraction of foreground pixels that belong to
// connected components of at most 4 pixels.
func SpeckleRatio(bin *image.Gray) float64 {
	fg := utils.CountNonZero(bin)
	if fg <= 0 {
		return 0
	}
	tiny := 0
	for _, c := range utils.ConnectedComponents(bin) {
		if c.Area <= 4 {
			tiny += c.Area
		}
	}
	return float64(tiny) / float64(fg)
}

// QualityScore rates a variant for recognition: sharp, high-contrast
// images score higher (Laplacian spread times intensity spread).
func QualityScore(g *image.Gray) float64 {
	_, std := utils.MeanStd(g)
	return LaplacianStd(g) * std
}

// BuildInputs produces the conditioning variants for a crop. A zero
// scaleOverride selects the regime default: 3x for bright-on-dark, 2x
// otherwise.
func BuildInputs(crop image.Image, scaleOverride float64) Variants {
	preGray := utils.ToGray(crop)
	meanLum, _ := utils.MeanStd(preGray)
	corrected := ApplyGamma(crop, meanLum)
	preGray = utils.ToGray(corrected)
	regime := Classify(preGray)

	scale := scaleOverride
	if scale == 0 {
		if regime == RegimeBrightOnDark {
			scale = 3.0
		} else {
			scale = 2.0
		}
	}
	scaled := utils.ResizeFactor(corrected, scale)
	rawGray := utils.ToGray(scaled)

	if regime == RegimeBrightOnDark {
		return buildBrightOnDark(scaled, rawGray, scale)
	}
	return buildNormal(scaled, rawGray, scale)
}

func buildBrightOnDark(scaled image.Image, rawGray *image.Gray, scale float64) Variants {
	denoised := BilateralFilter(rawGray, 5, 40, 40)

	// Otsu beats local thresholding on uniform dark backgrounds;
	// inverted so recognition sees the standard dark-on-light polarity.
	otsuBin := utils.OtsuBinarize(denoised)
	binInv := utils.InvertGray(otsuBin)
	switch speckle := SpeckleRatio(otsuBin); {
	case speckle >= 0.09:
		binInv = utils.MorphOpen(binInv, 2, 2, 1)
	case speckle >= 0.03:
		// Mild noise: a light blur avoids destroying thin strokes.
		binInv = utils.MedianBlur3(binInv)
	}

	enhanced := CLAHE(denoised, 3.0, 8)
	invGray := utils.InvertGray(denoised)
	sharpInv := CLAHE(invGray, 2.0, 8)
	norm := CLAHE(normalizedLightness(scaled), 2.5, 8)

	return Variants{
		Raw:      denoised,
		Enhanced: enhanced,
		BinInv:   binInv,
		Norm:     norm,
		SharpInv: sharpInv,
		Regime:   RegimeBrightOnDark,
		Scale:    scale,
	}
}

func buildNormal(scaled image.Image, rawGray *image.Gray, scale float64) Variants {
	raw := NLMeansDenoise(rawGray, 6)
	enhanced := CLAHE(raw, 2.0, 8)
	bin := utils.AdaptiveThreshold(enhanced, 31, 2)
	binInv := utils.InvertGray(bin)
	norm := CLAHE(normalizedLightness(scaled), 2.0, 8)

	return Variants{
		Raw:      raw,
		Enhanced: enhanced,
		BinInv:   binInv,
		Norm:     norm,
		SharpInv: nil,
		Regime:   RegimeNormal,
		Scale:    scale,
	}
}

// normalizedLightness extracts the CIE L* channel and stretches it to
// the full range, giving an illumination-invariant view.
func normalizedLightness(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	minV, maxV := 255.0, 0.0
	vals := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			l := lightness(float64(r)/65535.0, float64(g)/65535.0, float64(bl)/65535.0)
			vals[y*w+x] = l
			if l < minV {
				minV = l
			}
			if l > maxV {
				maxV = l
			}
		}
	}
	span := maxV - minV
	if span < 1e-6 {
		span = 1
	}
	for i, l := range vals {
		out.Pix[i] = uint8((l - minV) / span * 255.0)
	}
	return out
}

func lightness(r, g, b float64) float64 {
	lin := func(c float64) float64 {
		if c <= 0.04045 {
			return c / 12.92
		}
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	y := 0.2126*lin(r) + 0.7152*lin(g) + 0.0722*lin(b)
	var f float64
	if y > 0.008856 {
		f = math.Cbrt(y)
	} else {
		f = (903.3*y + 16) / 116
	}
	l := 116*f - 16
	if l < 0 {
		l = 0
	}
	return l * 255.0 / 100.0
}
