package consensus

import (
	"sort"

	"github.com/vaultlens/vaultlens/internal/score"
)

type entry struct {
	text string
	conf float64
	base float64
}

type cluster struct {
	seed     string
	bestBase float64
	variants []entry
}

// SelectCandidate reconciles the whole candidate population of a frame:
// normalize each combined text to its best window, pick a global target
// length by weighted mode, cluster near-duplicate readings greedily by
// bounded edit distance (strongest base score seeds first), position-vote
// inside each cluster and rank the clusters. Returns the winning text
// and its peak confidence.
func SelectCandidate(candidates []score.Candidate, allowlist string) (string, float64) {
	entries := make([]entry, 0, len(candidates))
	for _, c := range candidates {
		text := score.Normalize(score.BestTextWindow(c.Text, allowlist), allowlist)
		if text == "" {
			continue
		}
		entries = append(entries, entry{
			text: text,
			conf: score.CandidateConfidence(c.Detections),
			base: score.ScoreResult(c.Detections, text),
		})
	}
	if len(entries) == 0 {
		return "", 0.0
	}

	// Target length from weighted mode suppresses accidental long tails.
	lenWeights := make(map[int]float64)
	for _, e := range entries {
		w := e.conf * 2.0
		if w < 0.2 {
			w = 0.2
		}
		if e.base > 0 {
			w += e.base * 0.05
		}
		lenWeights[len(e.text)] += w
	}
	targetLen := 0
	bestLenW := -1.0
	for l, w := range lenWeights {
		if w > bestLenW || (w == bestLenW && l < targetLen) {
			targetLen = l
			bestLenW = w
		}
	}

	ordered := append([]entry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].base > ordered[j].base })

	var clusters []*cluster
	for _, e := range ordered {
		maxDist := DistanceThreshold(len(e.text))
		placed := false
		for _, cl := range clusters {
			gap := len(cl.seed) - len(e.text)
			if gap < 0 {
				gap = -gap
			}
			if gap > maxDist {
				continue
			}
			if BoundedLevenshtein(cl.seed, e.text, maxDist) <= maxDist {
				cl.variants = append(cl.variants, e)
				if e.base > cl.bestBase {
					cl.bestBase = e.base
					cl.seed = e.text
				}
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, &cluster{seed: e.text, bestBase: e.base, variants: []entry{e}})
		}
	}

	bestText := ""
	bestConf := 0.0
	bestScore := -1e9
	for _, cl := range clusters {
		votes := make([]Weighted, 0, len(cl.variants))
		for _, v := range cl.variants {
			w := v.conf
			if w < 0.05 {
				w = 0.05
			}
			l := float64(len(v.text))
			if l < 1 {
				l = 1
			}
			votes = append(votes, Weighted{Text: v.text, Weight: w * l})
		}
		voted := score.Normalize(score.BestTextWindow(PositionVote(votes), allowlist), allowlist)
		if voted == "" {
			continue
		}
		var sumBase, maxConf float64
		for _, v := range cl.variants {
			sumBase += v.base
			if v.conf > maxConf {
				maxConf = v.conf
			}
		}
		avgBase := sumBase / float64(len(cl.variants))
		hits := len(cl.variants)
		if hits > 3 {
			hits = 3
		}
		lenGap := len(voted) - targetLen
		if lenGap < 0 {
			lenGap = -lenGap
		}
		lenBonus := 4.6 - float64(lenGap)*1.45
		if lenBonus < 0 {
			lenBonus = 0
		}
		s := avgBase*0.95 +
			score.PatternScore(voted)*1.35 +
			maxConf*2.4 +
			float64(hits)*1.1 +
			lenBonus*0.35
		if s > bestScore {
			bestScore = s
			bestText = voted
			bestConf = maxConf
		}
	}

	if bestText == "" {
		best := entries[0]
		for _, e := range entries[1:] {
			if e.base > best.base {
				best = e
			}
		}
		return best.text, best.conf
	}
	return bestText, bestConf
}
