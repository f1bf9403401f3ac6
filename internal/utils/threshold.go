package utils

import "image"

// OtsuThreshold computes the global Otsu threshold for a grayscale
// image by maximizing between-class variance over the histogram.
func OtsuThreshold(g *image.Gray) uint8 {
	hist := Histogram(g)
	total := 0
	var sum float64
	for v, c := range hist {
		total += c
		sum += float64(v) * float64(c)
	}
	if total == 0 {
		return 0
	}

	var sumB, wB float64
	bestVar := -1.0
	best := 0
	for v := 0; v < 256; v++ {
		wB += float64(hist[v])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(v) * float64(hist[v])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = v
		}
	}
	return uint8(best)
}

// BinarizeAbove returns a 0/255 mask with pixels >= thr set to 255.
func BinarizeAbove(g *image.Gray, thr uint8) *image.Gray {
	out := CloneGray(g)
	for i, v := range out.Pix {
		if v >= thr {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// BinarizeBelow returns a 0/255 mask with pixels < thr set to 255.
func BinarizeBelow(g *image.Gray, thr uint8) *image.Gray {
	out := CloneGray(g)
	for i, v := range out.Pix {
		if v < thr {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// OtsuBinarize thresholds at the Otsu level, foreground above.
func OtsuBinarize(g *image.Gray) *image.Gray {
	return BinarizeAbove(g, OtsuThreshold(g)+1)
}

// AdaptiveThreshold binarizes against a local Gaussian-weighted mean:
// pixels whose value exceeds localMean+c become foreground (255). The
// local mean is approximated by a Gaussian blur with sigma derived from
// blockSize, which matches the behavior closely enough for mask work.
func AdaptiveThreshold(g *image.Gray, blockSize int, c float64) *image.Gray {
	if blockSize < 3 {
		blockSize = 3
	}
	sigma := float64(blockSize) / 6.0
	local := GaussianBlurGray(CloneGray(g), sigma)
	src := CloneGray(g)
	out := image.NewGray(src.Bounds())
	for i := range src.Pix {
		if float64(src.Pix[i]) > float64(local.Pix[i])+c {
			out.Pix[i] = 255
		}
	}
	return out
}

// AndMask intersects two 0/255 masks of identical dimensions.
func AndMask(a, b *image.Gray) *image.Gray {
	out := CloneGray(a)
	bb := CloneGray(b)
	for i := range out.Pix {
		if i < len(bb.Pix) && out.Pix[i] == 255 && bb.Pix[i] == 255 {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// CountNonZero returns the number of foreground pixels in a mask.
func CountNonZero(g *image.Gray) int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}
