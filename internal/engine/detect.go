package engine

import (
	"image"
	"sort"

	"github.com/vaultlens/vaultlens/internal/utils"
)

type textBox struct {
	Rect  image.Rectangle
	Score float64
}

// extractBoxes turns a detector probability map into text boxes. Pixels
// above opts.LowText form regions; a region survives only if its peak
// probability clears opts.TextThreshold. Region score is the mean
// probability over its pixels.
func extractBoxes(probMap []float32, mapW, mapH int, opts Options) []textBox {
	if mapW <= 0 || mapH <= 0 || len(probMap) < mapW*mapH {
		return nil
	}
	mask := image.NewGray(image.Rect(0, 0, mapW, mapH))
	low := float32(opts.LowText)
	for i := 0; i < mapW*mapH; i++ {
		if probMap[i] >= low {
			mask.Pix[i] = 255
		}
	}

	comps := utils.ConnectedComponents(mask)
	boxes := make([]textBox, 0, len(comps))
	for _, c := range comps {
		if c.Area < 4 {
			continue
		}
		var peak float32
		var sum float64
		n := 0
		for y := c.Rect.Min.Y; y < c.Rect.Max.Y; y++ {
			for x := c.Rect.Min.X; x < c.Rect.Max.X; x++ {
				i := y*mapW + x
				if mask.Pix[i] == 0 {
					continue
				}
				p := probMap[i]
				if p > peak {
					peak = p
				}
				sum += float64(p)
				n++
			}
		}
		if n == 0 || float64(peak) < opts.TextThreshold {
			continue
		}
		boxes = append(boxes, textBox{Rect: c.Rect, Score: sum / float64(n)})
	}
	return mergeRowBoxes(boxes, opts.WidthTols)
}

// mergeRowBoxes joins boxes on the same text row when the horizontal
// gap between them is at most widthTols times the shorter box height.
// Token glyphs often detect as several fragments; the recognizer reads
// a full row far better than isolated chunks.
func mergeRowBoxes(boxes []textBox, widthTols float64) []textBox {
	if len(boxes) <= 1 {
		return boxes
	}
	sort.Slice(boxes, func(a, b int) bool {
		if boxes[a].Rect.Min.Y != boxes[b].Rect.Min.Y {
			return boxes[a].Rect.Min.Y < boxes[b].Rect.Min.Y
		}
		return boxes[a].Rect.Min.X < boxes[b].Rect.Min.X
	})
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(boxes) && !merged; i++ {
			for j := i + 1; j < len(boxes); j++ {
				if canMergeRow(boxes[i].Rect, boxes[j].Rect, widthTols) {
					area1 := float64(boxes[i].Rect.Dx() * boxes[i].Rect.Dy())
					area2 := float64(boxes[j].Rect.Dx() * boxes[j].Rect.Dy())
					score := (boxes[i].Score*area1 + boxes[j].Score*area2) / (area1 + area2)
					boxes[i] = textBox{Rect: boxes[i].Rect.Union(boxes[j].Rect), Score: score}
					boxes = append(boxes[:j], boxes[j+1:]...)
					merged = true
					break
				}
			}
		}
	}
	return boxes
}

func canMergeRow(a, b image.Rectangle, widthTols float64) bool {
	overlapTop := a.Min.Y
	if b.Min.Y > overlapTop {
		overlapTop = b.Min.Y
	}
	overlapBot := a.Max.Y
	if b.Max.Y < overlapBot {
		overlapBot = b.Max.Y
	}
	overlap := overlapBot - overlapTop
	minH := a.Dy()
	if b.Dy() < minH {
		minH = b.Dy()
	}
	if minH <= 0 || float64(overlap) < 0.5*float64(minH) {
		return false
	}
	gap := b.Min.X - a.Max.X
	if a.Min.X > b.Max.X {
		gap = a.Min.X - b.Max.X
	}
	return float64(gap) <= widthTols*float64(minH)
}

// projectBoxes maps detector-space boxes back to image coordinates,
// pads them by margin and drops anything under minSize.
func projectBoxes(boxes []textBox, scaleX, scaleY float64, imgW, imgH, minSize int, margin float64) []textBox {
	out := make([]textBox, 0, len(boxes))
	for _, b := range boxes {
		x0 := int(float64(b.Rect.Min.X) * scaleX)
		y0 := int(float64(b.Rect.Min.Y) * scaleY)
		x1 := int(float64(b.Rect.Max.X)*scaleX + 0.5)
		y1 := int(float64(b.Rect.Max.Y)*scaleY + 0.5)
		if margin > 0 {
			mx := int(margin * float64(y1-y0))
			my := int(margin * float64(y1-y0) * 0.5)
			x0 -= mx
			x1 += mx
			y0 -= my
			y1 += my
		}
		r := image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, imgW, imgH))
		if r.Dx() < minSize || r.Dy() < minSize {
			continue
		}
		out = append(out, textBox{Rect: r, Score: b.Score})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Rect.Min.Y != out[b].Rect.Min.Y {
			return out[a].Rect.Min.Y < out[b].Rect.Min.Y
		}
		return out[a].Rect.Min.X < out[b].Rect.Min.X
	})
	return out
}
