// Package locate finds the phone-screen quadrilateral in a frame and
// produces a rectified view of it.
package locate

import (
	"image"
	"math"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// ScreenRegion is a located phone screen: its bounding box and quad in
// frame coordinates and the perspective-rectified view.
type ScreenRegion struct {
	BBox   image.Rectangle
	Quad   utils.Quad
	Warped image.Image
}

// DetectPhoneScreen looks for a dark display-like panel near the frame
// center, portrait or landscape. warpSource, when non-nil, provides the
// pixels for the rectified output (typically a contrast-enhanced copy
// of the frame); detection itself always runs on frame. Returns nil
// when no plausible screen is found.
func DetectPhoneScreen(frame image.Image, warpSource image.Image) *ScreenRegion {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 80 || h < 80 {
		return nil
	}

	gray := utils.GaussianBlurGray(utils.ToGray(frame), 1.1)

	darkThr := utils.Percentile(gray, 38)
	if darkThr < 45 {
		darkThr = 45
	}
	if darkThr > 100 {
		darkThr = 100
	}
	dark := utils.BinarizeBelow(gray, darkThr)
	dark = utils.MorphClose(dark, 9, 9, 2)
	dark = utils.MorphOpen(dark, 5, 5, 1)

	comps := utils.ConnectedComponents(dark)
	if len(comps) == 0 {
		return nil
	}

	frameArea := float64(w * h)
	cxFrame := float64(w) * 0.5
	// Phones are usually held slightly below frame center.
	cyFrame := float64(h) * 0.52

	bestScore := math.Inf(-1)
	var bestQuad utils.Quad
	found := false
	for _, c := range comps {
		area := float64(c.Area)
		if area < frameArea*0.02 {
			continue
		}
		rect := utils.MinimumAreaRectangle(c.Boundary)
		if len(rect) != 4 {
			continue
		}
		rw, rh := utils.RectSize(rect)
		if rw < 2.0 || rh < 2.0 {
			continue
		}
		rectArea := rw * rh
		if rectArea < frameArea*0.02 {
			continue
		}
		// A region spanning essentially the whole frame is the scene
		// background, not a phone held up to the camera.
		if rectArea > frameArea*0.95 {
			continue
		}
		ar := math.Max(rw, rh) / math.Max(1.0, math.Min(rw, rh))
		// Both portrait and landscape screens pass; anything more
		// elongated is not a screen.
		if ar > 3.4 {
			continue
		}
		if math.Max(rw/float64(w), rh/float64(h)) < 0.26 {
			continue
		}
		if area/math.Max(1.0, rectArea) < 0.38 {
			continue
		}

		quad := utils.OrderQuad(rect)
		bbox := quad.BBox(w, h)
		cx := float64(bbox.Min.X) + float64(bbox.Dx())*0.5
		cy := float64(bbox.Min.Y) + float64(bbox.Dy())*0.5
		centerBonus := math.Max(0, 1.0-math.Abs(cx-cxFrame)/math.Max(1, float64(w)*0.5)) * 0.7
		centerBonus += math.Max(0, 1.0-math.Abs(cy-cyFrame)/math.Max(1, float64(h)*0.5)) * 0.55
		sizeBonus := math.Min(1.0, rw/float64(w))*0.45 + math.Min(1.0, rh/float64(h))*0.45
		s := area*(1.0+centerBonus+sizeBonus) + rectArea*0.15
		if s > bestScore {
			bestScore = s
			bestQuad = quad
			found = true
		}
	}
	if !found {
		return nil
	}

	// Inflate slightly to recapture edge pixels lost to blur.
	quad := bestQuad.Scale(1.03, w, h)
	bbox := quad.BBox(w, h)
	source := warpSource
	if source == nil {
		source = frame
	}
	var warped image.Image
	if wimg := WarpQuad(source, quad); wimg != nil {
		warped = wimg
	} else {
		if bbox.Dx() < 8 || bbox.Dy() < 8 {
			return nil
		}
		warped = utils.CropRect(source, bbox)
	}
	return &ScreenRegion{BBox: bbox, Quad: quad, Warped: warped}
}
