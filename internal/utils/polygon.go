package utils

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of a point set using the monotone
// chain algorithm. The returned hull is in counter-clockwise order.
func ConvexHull(pts []Point) []Point {
	p := removeDuplicatePoints(pts)
	if len(p) <= 2 {
		return p
	}
	sortPoints(p)
	lower := buildLowerHull(p)
	upper := buildUpperHull(p)
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

func removeDuplicatePoints(p []Point) []Point {
	seen := make(map[Point]struct{}, len(p))
	out := make([]Point, 0, len(p))
	for _, pt := range p {
		if _, ok := seen[pt]; ok {
			continue
		}
		seen[pt] = struct{}{}
		out = append(out, pt)
	}
	return out
}

func sortPoints(p []Point) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
}

func buildLowerHull(p []Point) []Point {
	var hull []Point
	for _, pt := range p {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	return hull
}

func buildUpperHull(p []Point) []Point {
	var hull []Point
	for i := len(p) - 1; i >= 0; i-- {
		pt := p[i]
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	return hull
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// MinimumAreaRectangle finds the minimum-area oriented rectangle
// enclosing the given points via rotating calipers over the convex hull.
// Returns the 4 corners, or nil for an empty input.
func MinimumAreaRectangle(pts []Point) []Point {
	if len(pts) == 0 {
		return nil
	}
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return nil
	case 1:
		p := hull[0]
		return []Point{p, p, p, p}
	case 2:
		return []Point{hull[0], hull[1], hull[1], hull[0]}
	}
	return findMinimumAreaRectangle(hull)
}

func findMinimumAreaRectangle(hull []Point) []Point {
	bestArea := math.Inf(1)
	var bestU, bestV Point
	var bestMinS, bestMaxS, bestMinT, bestMaxT float64
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		dx := b.X - a.X
		dy := b.Y - a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l, dy/l
		vx, vy := -uy, ux
		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s := p.X*ux + p.Y*uy
			t := p.X*vx + p.Y*vy
			minS = math.Min(minS, s)
			maxS = math.Max(maxS, s)
			minT = math.Min(minT, t)
			maxT = math.Max(maxT, t)
		}
		area := (maxS - minS) * (maxT - minT)
		if area < bestArea {
			bestArea = area
			bestU = Point{X: ux, Y: uy}
			bestV = Point{X: vx, Y: vy}
			bestMinS, bestMaxS, bestMinT, bestMaxT = minS, maxS, minT, maxT
		}
	}
	c0 := Point{X: bestU.X*bestMinS + bestV.X*bestMinT, Y: bestU.Y*bestMinS + bestV.Y*bestMinT}
	c1 := Point{X: bestU.X*bestMaxS + bestV.X*bestMinT, Y: bestU.Y*bestMaxS + bestV.Y*bestMinT}
	c2 := Point{X: bestU.X*bestMaxS + bestV.X*bestMaxT, Y: bestU.Y*bestMaxS + bestV.Y*bestMaxT}
	c3 := Point{X: bestU.X*bestMinS + bestV.X*bestMaxT, Y: bestU.Y*bestMinS + bestV.Y*bestMaxT}
	return []Point{c0, c1, c2, c3}
}

// RectSize returns the side lengths of a 4-corner rectangle as returned
// by MinimumAreaRectangle.
func RectSize(rect []Point) (w, h float64) {
	if len(rect) != 4 {
		return 0, 0
	}
	return hypot(rect[1], rect[0]), hypot(rect[3], rect[0])
}
