package consensus

// Weighted is one voting variant: a candidate text with its support
// weight.
type Weighted struct {
	Text   string
	Weight float64
}

// PositionVote reconciles weighted text variants character by
// character: a target length is picked by weighted mode, the variant
// closest to that length becomes the alignment reference, every variant
// is aligned to it, and each reference position takes the
// weighted-plurality character. Variants far from the target length are
// down-weighted; positions with no votes fall back to the reference's
// own character.
func PositionVote(variants []Weighted) string {
	if len(variants) == 0 {
		return ""
	}
	if len(variants) == 1 {
		return variants[0].Text
	}

	targetLen := weightedModeLength(variants)

	reference := ""
	bestLenGap := -1
	bestWeight := 0.0
	for _, v := range variants {
		gap := len([]rune(v.Text)) - targetLen
		if gap < 0 {
			gap = -gap
		}
		w := v.Weight
		if w < 0.01 {
			w = 0.01
		}
		if reference == "" || gap < bestLenGap || (gap == bestLenGap && w > bestWeight) {
			reference = v.Text
			bestLenGap = gap
			bestWeight = w
		}
	}
	if reference == "" {
		reference = variants[0].Text
	}

	ref := []rune(reference)
	out := make([]rune, 0, len(ref))

	// Alignments are reused across positions.
	aligned := make([][]rune, len(variants))
	weights := make([]float64, len(variants))
	for vi, v := range variants {
		if v.Text == "" {
			continue
		}
		w := v.Weight
		if w < 0.01 {
			w = 0.01
		}
		lenGap := len([]rune(v.Text)) - targetLen
		if lenGap < 0 {
			lenGap = -lenGap
		}
		weights[vi] = w / (1.0 + float64(lenGap)*0.35)
		aligned[vi] = AlignToReference(reference, v.Text)
	}

	for i := range ref {
		votes := make(map[rune]float64)
		for vi := range variants {
			al := aligned[vi]
			if al == nil || i >= len(al) {
				continue
			}
			ch := al[i]
			if ch == Gap {
				continue
			}
			votes[ch] += weights[vi]
		}
		if len(votes) == 0 {
			out = append(out, ref[i])
			continue
		}
		var bestCh rune
		bestW := -1.0
		for ch, w := range votes {
			if w > bestW || (w == bestW && ch < bestCh) {
				bestCh = ch
				bestW = w
			}
		}
		out = append(out, bestCh)
	}
	return string(out)
}

func weightedModeLength(variants []Weighted) int {
	lenWeight := make(map[int]float64)
	for _, v := range variants {
		w := v.Weight
		if w < 0.01 {
			w = 0.01
		}
		lenWeight[len([]rune(v.Text))] += w
	}
	target := 0
	bestW := -1.0
	for l, w := range lenWeight {
		if w > bestW || (w == bestW && l < target) {
			target = l
			bestW = w
		}
	}
	return target
}
