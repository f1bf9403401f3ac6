package locate

import "github.com/vaultlens/vaultlens/internal/utils"

// computeHomography computes the 3x3 matrix H mapping p[i] -> q[i],
// returned row-major with h22 fixed to 1.
func computeHomography(p, q [4]utils.Point) ([9]float64, bool) {
	// Build the 8x8 system A*h = b for the 8 unknowns (h00..h21).
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := p[i].X, p[i].Y
		x, y := q[i].X, q[i].Y
		r := 2 * i
		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		a[r][0] = X
		a[r][1] = Y
		a[r][2] = 1
		a[r][6] = -X * x
		a[r][7] = -Y * x
		b[r] = x
		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		a[r+1][3] = X
		a[r+1][4] = Y
		a[r+1][5] = 1
		a[r+1][6] = -X * y
		a[r+1][7] = -Y * y
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return [9]float64{}, false
	}
	return [9]float64{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, true
}

func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	// Gauss-Jordan with partial pivoting.
	for col := range 8 {
		pivot := -1
		best := 0.0
		for r := col; r < 8; r++ {
			v := a[r][col]
			if v < 0 {
				v = -v
			}
			if v > best {
				best = v
				pivot = r
			}
		}
		if pivot == -1 || best < 1e-12 {
			return [8]float64{}, false
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}
		inv := 1.0 / a[col][col]
		for j := col; j < 8; j++ {
			a[col][j] *= inv
		}
		b[col] *= inv
		for r := range 8 {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for j := col; j < 8; j++ {
				a[r][j] -= f * a[col][j]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

func applyHomography(h [9]float64, x, y float64) (float64, float64) {
	d := h[6]*x + h[7]*y + h[8]
	if d == 0 {
		d = 1e-12
	}
	return (h[0]*x + h[1]*y + h[2]) / d, (h[3]*x + h[4]*y + h[5]) / d
}
