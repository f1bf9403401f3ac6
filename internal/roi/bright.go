package roi

import (
	"image"
	"math"
	"sort"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// ProposeBright finds candidate rectangles of bright text bands by
// thresholding at several high luminance percentiles, linking the
// resulting blobs with size-proportional kernels and scoring wide
// line-like shapes near the lower center.
func ProposeBright(img image.Image, maxROIs int) []image.Rectangle {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 40 || h < 40 {
		return nil
	}

	gray := utils.ToGray(img)
	frameArea := float64(w * h)
	cxFrame := float64(w) * 0.5
	cyFrame := float64(h) * 0.58

	type scoredRect struct {
		score float64
		rect  image.Rectangle
	}
	var candidates []scoredRect

	for _, perc := range []float64{85, 88, 91} {
		thr := utils.Percentile(gray, perc)
		if thr < 130 {
			thr = 130
		}
		if thr > 245 {
			thr = 245
		}
		bw := utils.BinarizeAbove(gray, thr)

		kx := maxInt(7, int(float64(w)*0.02)) | 1
		ky := maxInt(3, int(float64(h)*0.01)) | 1
		linked := utils.MorphClose(bw, kx, ky, 1)
		linked = utils.MorphOpen(linked, 3, 3, 1)

		for _, c := range utils.ConnectedComponents(linked) {
			cw, ch := c.Rect.Dx(), c.Rect.Dy()
			area := float64(cw * ch)
			if area < frameArea*0.0008 || area > frameArea*0.55 {
				continue
			}
			if float64(cw) < float64(w)*0.10 {
				continue
			}
			if float64(ch) < float64(h)*0.025 || float64(ch) > float64(h)*0.50 {
				continue
			}
			ar := float64(cw) / math.Max(1, float64(ch))
			if ar < 1.1 {
				continue
			}

			cx := float64(c.Rect.Min.X) + float64(cw)*0.5
			cy := float64(c.Rect.Min.Y) + float64(ch)*0.5
			dx := math.Abs(cx-cxFrame) / math.Max(1, float64(w)*0.5)
			dy := math.Abs(cy-cyFrame) / math.Max(1, float64(h)*0.65)
			centerBonus := math.Max(0, 1.0-dx-0.8*dy)
			widthRatio := float64(cw) / math.Max(1, float64(w))
			areaRatio := area / math.Max(1, frameArea)
			s := area * (1.0 + centerBonus)
			s += widthRatio*2200.0 + areaRatio*1800.0

			padX := maxInt(int(float64(cw)*0.18), int(float64(w)*0.01))
			padY := maxInt(int(float64(ch)*0.40), int(float64(h)*0.01))
			rect := image.Rect(
				maxInt(0, c.Rect.Min.X-padX),
				maxInt(0, c.Rect.Min.Y-padY),
				minInt(w, c.Rect.Max.X+padX),
				minInt(h, c.Rect.Max.Y+padY),
			)
			candidates = append(candidates, scoredRect{score: s, rect: rect})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	rects := make([]image.Rectangle, len(candidates))
	for i, c := range candidates {
		rects[i] = c.rect
	}
	return Dedupe(rects, 0.62, maxROIs)
}
