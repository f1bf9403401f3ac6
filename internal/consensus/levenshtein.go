// Package consensus reconciles many noisy recognition readings into one
// best-guess string using bounded edit distance clustering and
// per-character weighted voting.
package consensus

// DistanceThreshold is the clustering edit distance bound for a text of
// the given length.
func DistanceThreshold(length int) int {
	if length <= 18 {
		return 2
	}
	return 3
}

// BoundedLevenshtein computes the edit distance between a and b, giving
// up once the distance provably exceeds maxDist: it short-circuits on a
// length gap larger than maxDist and terminates early once an entire DP
// row minimum exceeds the bound. Returns maxDist+1 as a "too far"
// sentinel in both cases.
func BoundedLevenshtein(a, b string, maxDist int) int {
	ra := []rune(a)
	rb := []rune(b)
	la, lb := len(ra), len(rb)
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff > maxDist {
		return maxDist + 1
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		rowMin := cur[0]
		ca := ra[i-1]
		for j := 1; j <= lb; j++ {
			cost := 1
			if ca == rb[j-1] {
				cost = 0
			}
			v := prev[j] + 1
			if cur[j-1]+1 < v {
				v = cur[j-1] + 1
			}
			if prev[j-1]+cost < v {
				v = prev[j-1] + cost
			}
			cur[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > maxDist {
			return maxDist + 1
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}
