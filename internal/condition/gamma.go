package condition

import (
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"
)

// Gamma lookup tables are cached by gamma value. Only a handful of
// discrete gammas are ever produced by the luminance buckets, so the
// cache stays tiny; the mutex keeps lazy population safe when the
// pipeline runs inside a server.
var gammaLUTs = struct {
	sync.Mutex
	m map[float64]*[256]uint8
}{m: make(map[float64]*[256]uint8)}

func gammaLUT(gamma float64) *[256]uint8 {
	gammaLUTs.Lock()
	defer gammaLUTs.Unlock()
	if lut, ok := gammaLUTs.m[gamma]; ok {
		return lut
	}
	var lut [256]uint8
	inv := 1.0 / gamma
	for i := range lut {
		v := int(math.Pow(float64(i)/255.0, inv) * 255.0)
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	gammaLUTs.m[gamma] = &lut
	return &lut
}

// gammaForMean maps mean luminance buckets to a correction gamma.
// Darker images get gamma<1 to lift shadows, brighter get gamma>1 to
// recover highlights. Returns 0 when no correction applies.
func gammaForMean(meanLum float64) float64 {
	switch {
	case meanLum < 80:
		return 0.75
	case meanLum < 120:
		return 0.85
	case meanLum > 200:
		return 1.3
	case meanLum > 160:
		return 1.15
	default:
		return 0
	}
}

// ApplyGamma applies the bucketed one-shot gamma correction to a color
// crop. Images in the neutral luminance band are returned unchanged.
func ApplyGamma(crop image.Image, meanLum float64) image.Image {
	gamma := gammaForMean(meanLum)
	if gamma == 0 {
		return crop
	}
	lut := gammaLUT(gamma)
	out := imaging.Clone(crop)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = lut[out.Pix[i]]
		out.Pix[i+1] = lut[out.Pix[i+1]]
		out.Pix[i+2] = lut[out.Pix[i+2]]
	}
	return out
}
