package roi

import (
	"image"
	"math"
	"sort"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// Line is a candidate text-line rectangle. Clipped means the padded box
// hit the view border, a signal that text may continue outside it.
type Line struct {
	Rect    image.Rectangle
	Clipped bool
}

// FindTextLine locates the dominant text line in a text mask: link
// characters into line blobs with a wide closing kernel, score the
// surviving blobs, absorb every blob on the same text row into the
// winner, then pad and tighten the merged box.
func FindTextLine(mask *image.Gray) (Line, bool) {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Line{}, false
	}

	// The wide kernel bridges gaps between separated characters, e.g. a
	// lone "T" far from a symbol cluster.
	linked := utils.MorphClose(mask, 45, 7, 1)
	comps := utils.ConnectedComponents(linked)
	if len(comps) == 0 {
		return Line{}, false
	}

	frameArea := float64(w * h)
	cxFrame := float64(w) * 0.5
	cyFrame := float64(h) * 0.65

	type scoredRect struct {
		score float64
		rect  image.Rectangle
	}
	candidates := make([]scoredRect, 0, len(comps))
	for _, c := range comps {
		cw, ch := c.Rect.Dx(), c.Rect.Dy()
		area := float64(cw * ch)
		if area > frameArea*0.45 || area < frameArea*0.0004 {
			continue
		}
		if float64(cw) < float64(w)*0.03 {
			continue
		}
		if float64(ch) > float64(h)*0.25 {
			continue
		}
		// Slightly non-wide blobs pass: single chars can be nearly square.
		if float64(cw) < float64(ch)*0.8 {
			continue
		}

		cx := float64(c.Rect.Min.X) + float64(cw)*0.5
		cy := float64(c.Rect.Min.Y) + float64(ch)*0.5
		dx := math.Abs(cx-cxFrame) / math.Max(1, float64(w)*0.5)
		dy := math.Abs(cy-cyFrame) / math.Max(1, float64(h)*0.65)
		centerBonus := math.Max(0, 1.0-1.0*dx-0.85*dy)
		candidates = append(candidates, scoredRect{score: area * (1.0 + centerBonus), rect: c.Rect})
	}
	if len(candidates) == 0 {
		return Line{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	// Merge every other surviving blob on the same text row, not just
	// neighbors of the best: real lines fragment into several contours.
	merged := candidates[0].rect
	for changed := true; changed; {
		changed = false
		for _, c := range candidates[1:] {
			if c.rect.In(merged) {
				continue
			}
			cyA := float64(merged.Min.Y+merged.Max.Y) * 0.5
			cyB := float64(c.rect.Min.Y) + float64(c.rect.Dy())*0.5
			rowH := float64(merged.Dy())
			if float64(c.rect.Dy()) > rowH {
				rowH = float64(c.rect.Dy())
			}
			yOverlap := minInt(merged.Max.Y, c.rect.Max.Y) - maxInt(merged.Min.Y, c.rect.Min.Y)
			if math.Abs(cyB-cyA) <= rowH*1.2 || yOverlap > 0 {
				grown := merged.Union(c.rect)
				if grown != merged {
					merged = grown
					changed = true
				}
			}
		}
	}

	x, y := merged.Min.X, merged.Min.Y
	cw, ch := merged.Dx(), merged.Dy()

	// Keep context around the line without pulling in too much UI chrome.
	padX := int(math.Max(float64(cw)*0.45, float64(w)*0.08))
	padY := int(math.Max(float64(ch)*0.55, float64(h)*0.035))
	clipped := x-padX < 0 || x+cw+padX > w
	x0 := maxInt(0, x-padX)
	y0 := maxInt(0, y-padY)
	x1 := minInt(w, x+cw+padX)
	y1 := minInt(h, y+ch+padY)

	// Long symbol-heavy tokens need a wide crop.
	minW := int(float64(w) * 0.60)
	if x1-x0 < minW {
		extra := (minW - (x1 - x0)) / 2
		x0 = maxInt(0, x0-extra)
		x1 = minInt(w, x1+(minW-(x1-x0)))
	}

	rect := tightenTextBand(mask, image.Rect(x0, y0, x1, y1))
	return Line{Rect: rect, Clipped: clipped}, true
}

// tightenTextBand narrows a padded ROI vertically to the densest
// horizontal band of foreground pixels, then re-pads around that band
// with a floor on the resulting height.
func tightenTextBand(mask *image.Gray, r image.Rectangle) image.Rectangle {
	if r.Dx() < 8 || r.Dy() < 8 {
		return r
	}
	b := mask.Bounds()
	rowHits := make([]int, r.Dy())
	peak := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		hits := 0
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.Pix[mask.PixOffset(b.Min.X+x, b.Min.Y+y)] != 0 {
				hits++
			}
		}
		rowHits[y-r.Min.Y] = hits
		if hits > peak {
			peak = hits
		}
	}
	if peak <= 0 {
		return r
	}
	thresh := maxInt(2, peak*20/100)
	bandTop, bandBottom := -1, -1
	for i, hits := range rowHits {
		if hits >= thresh {
			if bandTop < 0 {
				bandTop = i
			}
			bandBottom = i
		}
	}
	if bandTop < 0 {
		return r
	}

	bandH := maxInt(1, bandBottom-bandTop+1)
	pad := maxInt(3, int(float64(bandH)*0.35))
	maskH := b.Dy()
	ny0 := maxInt(0, r.Min.Y+bandTop-pad)
	ny1 := minInt(maskH, r.Min.Y+bandBottom+1+pad)

	minH := maxInt(8, int(float64(r.Dy())*0.45))
	if ny1-ny0 < minH {
		extra := (minH - (ny1 - ny0)) / 2
		ny0 = maxInt(0, ny0-extra)
		ny1 = minInt(maskH, ny1+(minH-(ny1-ny0)))
	}
	return image.Rect(r.Min.X, ny0, r.Max.X, ny1)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
