package utils

import "image"

// Component describes one connected foreground blob in a binary mask.
type Component struct {
	Area     int             // foreground pixel count
	Rect     image.Rectangle // axis-aligned bounding rectangle
	Boundary []Point         // boundary pixels, for oriented rect fitting
}

// ConnectedComponents labels 8-connected foreground blobs of a 0/255
// mask using BFS, returning per-component stats. Boundary pixels (those
// with at least one background or border neighbor) are collected so a
// minimum-area rectangle can be fitted without keeping every pixel.
func ConnectedComponents(mask *image.Gray) []Component {
	src := CloneGray(mask)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	visited := make([]bool, w*h)
	var comps []Component
	queue := make([]int, 0, 256)

	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			start := sy*w + sx
			if visited[start] || src.Pix[sy*src.Stride+sx] == 0 {
				continue
			}
			comp := Component{Rect: image.Rect(sx, sy, sx+1, sy+1)}
			queue = queue[:0]
			queue = append(queue, start)
			visited[start] = true
			for len(queue) > 0 {
				idx := queue[0]
				queue = queue[1:]
				cx, cy := idx%w, idx/w
				comp.Area++
				growRect(&comp.Rect, cx, cy)
				boundary := false
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := cx+dx, cy+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							boundary = true
							continue
						}
						if src.Pix[ny*src.Stride+nx] == 0 {
							boundary = true
							continue
						}
						ni := ny*w + nx
						if !visited[ni] {
							visited[ni] = true
							queue = append(queue, ni)
						}
					}
				}
				if boundary {
					comp.Boundary = append(comp.Boundary, Point{X: float64(cx), Y: float64(cy)})
				}
			}
			comps = append(comps, comp)
		}
	}
	return comps
}

func growRect(r *image.Rectangle, x, y int) {
	if x < r.Min.X {
		r.Min.X = x
	}
	if y < r.Min.Y {
		r.Min.Y = y
	}
	if x+1 > r.Max.X {
		r.Max.X = x + 1
	}
	if y+1 > r.Max.Y {
		r.Max.Y = y + 1
	}
}
