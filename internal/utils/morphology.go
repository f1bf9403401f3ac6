package utils

import "image"

// Binary morphology on 0/255 masks with a kw x kh rectangular kernel.
// Erosion and dilation are separable for rectangular kernels, so each
// pass runs horizontally then vertically.

func dilatePass(src *image.Gray, kw, kh int) *image.Gray {
	h := runHorizontal(src, kw, true)
	return runVertical(h, kh, true)
}

func erodePass(src *image.Gray, kw, kh int) *image.Gray {
	h := runHorizontal(src, kw, false)
	return runVertical(h, kh, false)
}

func runHorizontal(src *image.Gray, k int, dilate bool) *image.Gray {
	if k <= 1 {
		return src
	}
	b := src.Bounds()
	w, hgt := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, hgt))
	half := k / 2
	for y := 0; y < hgt; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		orow := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := 0; x < w; x++ {
			val := uint8(0)
			if !dilate {
				val = 255
			}
			lo := x - half
			hi := x + half
			if lo < 0 {
				lo = 0
			}
			if hi >= w {
				hi = w - 1
			}
			for i := lo; i <= hi; i++ {
				if dilate {
					if row[i] == 255 {
						val = 255
						break
					}
				} else if row[i] == 0 {
					val = 0
					break
				}
			}
			orow[x] = val
		}
	}
	return out
}

func runVertical(src *image.Gray, k int, dilate bool) *image.Gray {
	if k <= 1 {
		return src
	}
	b := src.Bounds()
	w, hgt := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, hgt))
	half := k / 2
	for x := 0; x < w; x++ {
		for y := 0; y < hgt; y++ {
			val := uint8(0)
			if !dilate {
				val = 255
			}
			lo := y - half
			hi := y + half
			if lo < 0 {
				lo = 0
			}
			if hi >= hgt {
				hi = hgt - 1
			}
			for i := lo; i <= hi; i++ {
				if dilate {
					if src.Pix[i*src.Stride+x] == 255 {
						val = 255
						break
					}
				} else if src.Pix[i*src.Stride+x] == 0 {
					val = 0
					break
				}
			}
			out.Pix[y*out.Stride+x] = val
		}
	}
	return out
}

// MorphClose fills gaps: dilate then erode, repeated iterations times.
func MorphClose(mask *image.Gray, kw, kh, iterations int) *image.Gray {
	out := CloneGray(mask)
	for range iterations {
		out = erodePass(dilatePass(out, kw, kh), kw, kh)
	}
	return out
}

// MorphOpen removes small noise: erode then dilate.
func MorphOpen(mask *image.Gray, kw, kh, iterations int) *image.Gray {
	out := CloneGray(mask)
	for range iterations {
		out = dilatePass(erodePass(out, kw, kh), kw, kh)
	}
	return out
}

// MedianBlur3 applies a 3x3 median filter, used for light speckle
// cleanup on binary images without thinning glyph strokes.
func MedianBlur3(g *image.Gray) *image.Gray {
	src := CloneGray(g)
	b := src.Bounds()
	w, hgt := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, hgt))
	var window [9]uint8
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx := clampInt(x+dx, 0, w-1)
					ny := clampInt(y+dy, 0, hgt-1)
					window[n] = src.Pix[ny*src.Stride+nx]
					n++
				}
			}
			out.Pix[y*out.Stride+x] = median9(window)
		}
	}
	return out
}

func median9(w [9]uint8) uint8 {
	// Insertion sort; the window is tiny.
	for i := 1; i < 9; i++ {
		v := w[i]
		j := i - 1
		for j >= 0 && w[j] > v {
			w[j+1] = w[j]
			j--
		}
		w[j+1] = v
	}
	return w[4]
}
