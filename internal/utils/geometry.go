package utils

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// Quad is a quadrilateral with points ordered top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]Point

// OrderQuad canonicalizes four points into TL/TR/BR/BL order using the
// sum/difference rule: TL minimizes x+y, BR maximizes it, TR minimizes
// y-x, BL maximizes it. The result is deterministic regardless of the
// input ordering.
func OrderQuad(pts []Point) Quad {
	var q Quad
	if len(pts) < 4 {
		return q
	}
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	minDiff, maxDiff := math.Inf(1), math.Inf(-1)
	for _, p := range pts[:4] {
		s := p.X + p.Y
		d := p.Y - p.X
		if s < minSum {
			minSum = s
			q[0] = p
		}
		if s > maxSum {
			maxSum = s
			q[2] = p
		}
		if d < minDiff {
			minDiff = d
			q[1] = p
		}
		if d > maxDiff {
			maxDiff = d
			q[3] = p
		}
	}
	return q
}

// Center returns the centroid of the quad.
func (q Quad) Center() Point {
	return Point{
		X: (q[0].X + q[1].X + q[2].X + q[3].X) * 0.25,
		Y: (q[0].Y + q[1].Y + q[2].Y + q[3].Y) * 0.25,
	}
}

// Scale expands or shrinks the quad about its centroid and clamps the
// result to the given image dimensions.
func (q Quad) Scale(factor float64, imgW, imgH int) Quad {
	if math.Abs(factor-1.0) < 1e-6 {
		return q
	}
	c := q.Center()
	var out Quad
	for i, p := range q {
		x := (p.X-c.X)*factor + c.X
		y := (p.Y-c.Y)*factor + c.Y
		out[i] = Point{
			X: clampFloat(x, 0, math.Max(0, float64(imgW-1))),
			Y: clampFloat(y, 0, math.Max(0, float64(imgH-1))),
		}
	}
	return out
}

// BBox returns the axis-aligned bounding rectangle of the quad, clamped
// to the given image dimensions. The right/bottom edges are exclusive.
func (q Quad) BBox(imgW, imgH int) image.Rectangle {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := q[0].X, q[0].Y
	for _, p := range q[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	x0 := clampInt(int(math.Floor(minX)), 0, imgW)
	y0 := clampInt(int(math.Floor(minY)), 0, imgH)
	x1 := clampInt(int(math.Ceil(maxX))+1, 0, imgW)
	y1 := clampInt(int(math.Ceil(maxY))+1, 0, imgH)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return image.Rect(x0, y0, x1, y1)
}

// EdgeLengths returns the average top/bottom width and left/right height
// of the quad, used to size a rectified output.
func (q Quad) EdgeLengths() (width, height float64) {
	wTop := hypot(q[1], q[0])
	wBottom := hypot(q[2], q[3])
	hLeft := hypot(q[3], q[0])
	hRight := hypot(q[2], q[1])
	return math.Max(wTop, wBottom), math.Max(hLeft, hRight)
}

func hypot(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RectIoU computes intersection-over-union between two rectangles.
func RectIoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0.0
	}
	interArea := inter.Dx() * inter.Dy()
	areaA := maxInt(1, a.Dx()*a.Dy())
	areaB := maxInt(1, b.Dx()*b.Dy())
	return float64(interArea) / float64(maxInt(1, areaA+areaB-interArea))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
