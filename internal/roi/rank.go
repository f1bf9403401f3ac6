package roi

import (
	"image"
	"math"
	"sort"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// Dedupe keeps at most maxROIs rectangles, dropping degenerate ones and
// any overlapping an earlier keeper at IoU >= iouThreshold. Earlier
// entries win, so callers should pass rects in priority order.
func Dedupe(rois []image.Rectangle, iouThreshold float64, maxROIs int) []image.Rectangle {
	kept := make([]image.Rectangle, 0, maxROIs)
	for _, r := range rois {
		if r.Dx() < 8 || r.Dy() < 8 {
			continue
		}
		dup := false
		for _, k := range kept {
			if utils.RectIoU(r, k) >= iouThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, r)
		if len(kept) >= maxROIs {
			break
		}
	}
	return kept
}

// PriorityScore rates how promising an ROI is as the token's text line:
// wide horizontal bands near the lower center win, tiny reflection
// snippets are strongly demoted.
func PriorityScore(r image.Rectangle, viewW, viewH int) float64 {
	rw := math.Max(1, float64(r.Dx()))
	rh := math.Max(1, float64(r.Dy()))
	areaRatio := rw * rh / math.Max(1, float64(viewW*viewH))
	widthRatio := rw / math.Max(1, float64(viewW))
	heightRatio := rh / math.Max(1, float64(viewH))
	aspect := rw / rh

	cx := float64(r.Min.X+r.Max.X) * 0.5
	cy := float64(r.Min.Y+r.Max.Y) * 0.5
	dx := math.Abs(cx-float64(viewW)*0.5) / math.Max(1, float64(viewW)*0.5)
	dy := math.Abs(cy-float64(viewH)*0.62) / math.Max(1, float64(viewH)*0.62)
	centerBonus := math.Max(0, 1.0-0.95*dx-0.70*dy)

	s := widthRatio * 11.0
	s += math.Min(4.5, areaRatio*95.0)
	s += math.Min(2.0, math.Max(0, aspect-1.2)*0.18)
	s += centerBonus * 2.0

	if widthRatio < 0.20 {
		s -= (0.20 - widthRatio) * 22.0
	}
	if areaRatio < 0.012 {
		s -= (0.012 - areaRatio) * 120.0
	}
	if heightRatio < 0.025 {
		s -= 0.9
	}
	return s
}

// Prioritize orders ROIs by descending priority score and promotes the
// widest candidate into the first two slots, so at least one broad crop
// is always attempted even when only a few passes run.
func Prioritize(rois []image.Rectangle, viewW, viewH int) []image.Rectangle {
	if len(rois) == 0 {
		return nil
	}
	ordered := append([]image.Rectangle(nil), rois...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return PriorityScore(ordered[i], viewW, viewH) > PriorityScore(ordered[j], viewW, viewH)
	})
	widest := ordered[0]
	for _, r := range ordered[1:] {
		if r.Dx() > widest.Dx() {
			widest = r
		}
	}
	if ordered[0] == widest {
		return ordered
	}
	out := make([]image.Rectangle, 0, len(ordered))
	out = append(out, ordered[0], widest)
	for _, r := range ordered[1:] {
		if r != widest {
			out = append(out, r)
		}
	}
	return out
}

// Expand grows an ROI about its center by the given factors, clamped to
// the view.
func Expand(r image.Rectangle, viewW, viewH int, scaleX, scaleY float64) image.Rectangle {
	cx := float64(r.Min.X+r.Max.X) * 0.5
	cy := float64(r.Min.Y+r.Max.Y) * 0.5
	rw := float64(r.Dx()) * scaleX
	rh := float64(r.Dy()) * scaleY
	return image.Rect(
		maxInt(0, int(cx-rw*0.5)),
		maxInt(0, int(cy-rh*0.5)),
		minInt(viewW, int(cx+rw*0.5)),
		minInt(viewH, int(cy+rh*0.5)),
	)
}
