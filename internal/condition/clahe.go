package condition

import "image"

// CLAHE applies contrast-limited adaptive histogram equalization over a
// grid of tiles. Each tile's histogram is clipped at clipLimit (relative
// to a uniform distribution) with the excess redistributed, and pixel
// values are mapped through bilinear interpolation between the four
// surrounding tile transfer functions.
func CLAHE(g *image.Gray, clipLimit float64, gridSize int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || gridSize < 1 {
		return g
	}
	tileW := (w + gridSize - 1) / gridSize
	tileH := (h + gridSize - 1) / gridSize
	if tileW < 1 {
		tileW = 1
	}
	if tileH < 1 {
		tileH = 1
	}
	tilesX := (w + tileW - 1) / tileW
	tilesY := (h + tileH - 1) / tileH

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0 := tx * tileW
			y0 := ty * tileH
			x1 := x0 + tileW
			y1 := y0 + tileH
			if x1 > w {
				x1 = w
			}
			if y1 > h {
				y1 = h
			}
			luts[ty*tilesX+tx] = tileLUT(g, b, x0, y0, x1, y1, clipLimit)
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		// Fractional tile position for interpolation.
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(fy)
		if fy < 0 {
			ty0 = -1
		}
		ty1 := ty0 + 1
		wy := fy - float64(ty0)
		ty0 = clampTile(ty0, tilesY)
		ty1 = clampTile(ty1, tilesY)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(fx)
			if fx < 0 {
				tx0 = -1
			}
			tx1 := tx0 + 1
			wx := fx - float64(tx0)
			tx0c := clampTile(tx0, tilesX)
			tx1c := clampTile(tx1, tilesX)

			v := g.Pix[g.PixOffset(b.Min.X+x, b.Min.Y+y)]
			v00 := float64(luts[ty0*tilesX+tx0c][v])
			v10 := float64(luts[ty0*tilesX+tx1c][v])
			v01 := float64(luts[ty1*tilesX+tx0c][v])
			v11 := float64(luts[ty1*tilesX+tx1c][v])
			top := v00*(1-wx) + v10*wx
			bottom := v01*(1-wx) + v11*wx
			out.Pix[y*out.Stride+x] = uint8(top*(1-wy) + bottom*wy + 0.5)
		}
	}
	return out
}

func clampTile(t, n int) int {
	if t < 0 {
		return 0
	}
	if t >= n {
		return n - 1
	}
	return t
}

func tileLUT(g *image.Gray, b image.Rectangle, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[g.Pix[g.PixOffset(b.Min.X+x, b.Min.Y+y)]]++
		}
	}
	n := (x1 - x0) * (y1 - y0)
	var lut [256]uint8
	if n == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	clip := int(clipLimit * float64(n) / 256.0)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	// Redistribute clipped mass uniformly.
	share := excess / 256
	rem := excess % 256
	for i := range hist {
		hist[i] += share
		if i < rem {
			hist[i]++
		}
	}

	cum := 0
	scale := 255.0 / float64(n)
	for i := range hist {
		cum += hist[i]
		v := int(float64(cum)*scale + 0.5)
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	return lut
}
