package utils

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ToGray converts any image to 8-bit grayscale using the standard
// luminance weights.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*bl) / 1000
			out.Pix[(y-b.Min.Y)*out.Stride+(x-b.Min.X)] = uint8(lum >> 8)
		}
	}
	return out
}

// CloneGray returns a copy of g with a zero-origin bounds.
func CloneGray(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], g.Pix[off:off+b.Dx()])
	}
	return out
}

// MeanStd computes the mean and standard deviation of the gray levels.
func MeanStd(g *image.Gray) (mean, std float64) {
	b := g.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := g.PixOffset(b.Min.X, y)
		row := g.Pix[off : off+b.Dx()]
		for _, p := range row {
			v := float64(p)
			sum += v
			sumSq += v * v
		}
	}
	mean = sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// Histogram returns the 256-bin gray level histogram.
func Histogram(g *image.Gray) [256]int {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := g.PixOffset(b.Min.X, y)
		row := g.Pix[off : off+b.Dx()]
		for _, p := range row {
			hist[p]++
		}
	}
	return hist
}

// Percentile returns the gray level at the given percentile (0..100).
func Percentile(g *image.Gray, pct float64) uint8 {
	hist := Histogram(g)
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	target := int(float64(total) * pct / 100.0)
	cum := 0
	for v := 0; v < 256; v++ {
		cum += hist[v]
		if cum > target {
			return uint8(v)
		}
	}
	return 255
}

// InvertGray returns 255-v for every pixel.
func InvertGray(g *image.Gray) *image.Gray {
	out := CloneGray(g)
	for i, v := range out.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// ResizeFactor scales an image uniformly using Catmull-Rom (cubic)
// resampling, matching the interpolation used for OCR upscaling.
func ResizeFactor(img image.Image, factor float64) *image.NRGBA {
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

// ResizeMax downscales an image so that its longest side does not exceed
// maxSide. Images already within bounds are returned unchanged.
func ResizeMax(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}
	if maxSide <= 0 || longest <= maxSide {
		return img
	}
	scale := float64(maxSide) / float64(longest)
	return imaging.Resize(img, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale), imaging.Lanczos)
}

// GaussianBlurGray blurs a grayscale image with the given sigma.
func GaussianBlurGray(g *image.Gray, sigma float64) *image.Gray {
	return ToGray(imaging.Blur(g, sigma))
}

// MirrorH flips an image horizontally.
func MirrorH(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}

// CropRect crops an image to the given rectangle, returning a copy.
func CropRect(img image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, rect)
}

// RotateAbout rotates an image about its center by angleDeg keeping the
// original dimensions, sampling out-of-bounds pixels from the nearest
// edge (replicated border).
func RotateAbout(img image.Image, angleDeg float64) *image.NRGBA {
	src := imaging.Clone(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 4 || h < 4 {
		return src
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	theta := angleDeg * math.Pi / 180.0
	sin, cos := math.Sin(theta), math.Cos(theta)
	cx, cy := float64(w)*0.5, float64(h)*0.5
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Inverse mapping: rotate the destination pixel back into
			// source space.
			dx := float64(x) - cx
			dy := float64(y) - cy
			sx := cos*dx - sin*dy + cx
			sy := sin*dx + cos*dy + cy
			out.SetNRGBA(x, y, bilinearNRGBA(src, sx, sy))
		}
	}
	return out
}

func bilinearNRGBA(src *image.NRGBA, x, y float64) (c color.NRGBA) {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	x0 := clampInt(int(math.Floor(x)), 0, w-1)
	y0 := clampInt(int(math.Floor(y)), 0, h-1)
	x1 := clampInt(x0+1, 0, w-1)
	y1 := clampInt(y0+1, 0, h-1)
	fx := clampFloat(x-float64(x0), 0, 1)
	fy := clampFloat(y-float64(y0), 0, 1)
	p00 := src.NRGBAAt(x0, y0)
	p10 := src.NRGBAAt(x1, y0)
	p01 := src.NRGBAAt(x0, y1)
	p11 := src.NRGBAAt(x1, y1)
	lerp := func(a, b uint8, t float64) float64 { return float64(a)*(1-t) + float64(b)*t }
	c.R = uint8(math.Round(lerp(p00.R, p10.R, fx)*(1-fy) + lerp(p01.R, p11.R, fx)*fy))
	c.G = uint8(math.Round(lerp(p00.G, p10.G, fx)*(1-fy) + lerp(p01.G, p11.G, fx)*fy))
	c.B = uint8(math.Round(lerp(p00.B, p10.B, fx)*(1-fy) + lerp(p01.B, p11.B, fx)*fy))
	c.A = 255
	return c
}
