package engine

import (
	"math"
	"sort"
)

// decodedSequence holds CTC-decoded class indices with per-character
// probabilities after blank removal and repeat collapsing.
type decodedSequence struct {
	Collapsed     []int
	CollapsedProb []float64
}

func argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}

// stepProbs returns the class probabilities for one timestep. Model
// outputs already softmaxed pass through; logits get a stable softmax.
func stepProbs(v []float32) []float64 {
	out := make([]float64, len(v))
	var sum float64
	minV, maxV := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		if x < minV {
			minV = x
		}
		if x > maxV {
			maxV = x
		}
	}
	if sum > 0.99 && sum < 1.01 && minV >= 0 && maxV <= 1 {
		for i, x := range v {
			out[i] = float64(x)
		}
		return out
	}
	m := maxV
	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - m))
	}
	if denom == 0 {
		return out
	}
	for i, x := range v {
		out[i] = math.Exp(float64(x-m)) / denom
	}
	return out
}

// timeMajor reorders logits into per-timestep class slices for the
// first batch item, handling both [N,T,C] and [N,C,T] layouts.
func timeMajor(logits []float32, shape []int64, classesGuess int) [][]float32 {
	dims := make([]int64, 0, len(shape))
	dims = append(dims, shape...)
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	if len(dims) < 3 || dims[0] <= 0 {
		return nil
	}
	classesFirst := false
	if int(dims[2]) != classesGuess && int(dims[1]) == classesGuess {
		classesFirst = true
	}
	var tDim, cDim int
	if classesFirst {
		cDim = int(dims[1])
		tDim = int(dims[2])
	} else {
		tDim = int(dims[1])
		cDim = int(dims[2])
	}
	if tDim <= 0 || cDim <= 0 || tDim*cDim > len(logits) {
		return nil
	}
	steps := make([][]float32, tDim)
	if classesFirst {
		for t := 0; t < tDim; t++ {
			cls := make([]float32, cDim)
			for k := 0; k < cDim; k++ {
				cls[k] = logits[k*tDim+t]
			}
			steps[t] = cls
		}
	} else {
		for t := 0; t < tDim; t++ {
			steps[t] = logits[t*cDim : (t+1)*cDim]
		}
	}
	return steps
}

// decodeGreedy takes the argmax class per timestep, then collapses
// repeats and drops blanks.
func decodeGreedy(logits []float32, shape []int64, blank, classesGuess int) decodedSequence {
	steps := timeMajor(logits, shape, classesGuess)
	var out decodedSequence
	prev := -1
	for _, cls := range steps {
		idx, _ := argmax(cls)
		if idx == blank {
			prev = idx
			continue
		}
		if idx == prev {
			continue
		}
		probs := stepProbs(cls)
		out.Collapsed = append(out.Collapsed, idx)
		out.CollapsedProb = append(out.CollapsedProb, probs[idx])
		prev = idx
	}
	return out
}

type beamState struct {
	pBlank    float64 // probability of this prefix ending in blank
	pNonBlank float64 // probability of this prefix ending in its last symbol
}

func (s beamState) total() float64 { return s.pBlank + s.pNonBlank }

// decodeBeam runs CTC prefix beam search, keeping beamWidth prefixes
// per timestep. Prefixes are encoded as rune strings of class indices
// so they can key a map directly. Per-character probabilities are
// recovered afterwards by aligning the winning prefix against the
// per-step distributions, which is close enough for confidence scoring.
func decodeBeam(logits []float32, shape []int64, blank, beamWidth, classesGuess int) decodedSequence {
	steps := timeMajor(logits, shape, classesGuess)
	if len(steps) == 0 {
		return decodedSequence{}
	}
	if beamWidth < 1 {
		beamWidth = 1
	}

	beams := map[string]beamState{"": {pBlank: 1, pNonBlank: 0}}
	for _, cls := range steps {
		probs := stepProbs(cls)
		// Only the strongest classes matter per step; this keeps the
		// beam update linear in beamWidth instead of charset size.
		top := topClasses(probs, beamWidth+2)

		next := make(map[string]beamState, len(beams)*2)
		for key, st := range beams {
			last := -1
			if runes := []rune(key); len(runes) > 0 {
				last = int(runes[len(runes)-1])
			}
			for _, k := range top {
				p := probs[k]
				if p <= 0 {
					continue
				}
				switch {
				case k == blank:
					ns := next[key]
					ns.pBlank += st.total() * p
					next[key] = ns
				case k == last:
					// Same symbol again: it either extends the run
					// (same prefix) or starts fresh after a blank.
					ns := next[key]
					ns.pNonBlank += st.pNonBlank * p
					next[key] = ns

					ext := key + string(rune(k))
					es := next[ext]
					es.pNonBlank += st.pBlank * p
					next[ext] = es
				default:
					ext := key + string(rune(k))
					es := next[ext]
					es.pNonBlank += st.total() * p
					next[ext] = es
				}
			}
		}
		beams = pruneBeams(next, beamWidth)
	}

	bestKey := ""
	bestP := math.Inf(-1)
	for key, st := range beams {
		if p := st.total(); p > bestP {
			bestP = p
			bestKey = key
		}
	}
	runes := []rune(bestKey)
	collapsed := make([]int, len(runes))
	for i, r := range runes {
		collapsed[i] = int(r)
	}
	return decodedSequence{
		Collapsed:     collapsed,
		CollapsedProb: alignCharProbs(steps, collapsed, blank),
	}
}

func topClasses(probs []float64, n int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if n > len(idx) {
		n = len(idx)
	}
	return idx[:n]
}

func pruneBeams(beams map[string]beamState, beamWidth int) map[string]beamState {
	if len(beams) <= beamWidth {
		return beams
	}
	keys := make([]string, 0, len(beams))
	for key := range beams {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		return beams[keys[a]].total() > beams[keys[b]].total()
	})
	out := make(map[string]beamState, beamWidth)
	for _, key := range keys[:beamWidth] {
		out[key] = beams[key]
	}
	return out
}

// alignCharProbs walks the timesteps once, crediting each prefix
// symbol with the strongest step probability its class achieved while
// it was the current alignment target.
func alignCharProbs(steps [][]float32, collapsed []int, blank int) []float64 {
	out := make([]float64, len(collapsed))
	pos := 0
	for _, cls := range steps {
		if pos >= len(collapsed) {
			break
		}
		probs := stepProbs(cls)
		idx, _ := argmax(cls)
		if idx == blank {
			continue
		}
		if idx == collapsed[pos] {
			if probs[idx] > out[pos] {
				out[pos] = probs[idx]
			}
			// advance when the next step no longer continues this run
			pos++
			continue
		}
		if p := probs[collapsed[pos]]; p > out[pos] {
			out[pos] = p
		}
	}
	for i := range out {
		if out[i] == 0 {
			out[i] = 0.5
		}
	}
	return out
}

func sequenceConfidence(charProbs []float64) float64 {
	if len(charProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range charProbs {
		s += p
	}
	return s / float64(len(charProbs))
}
