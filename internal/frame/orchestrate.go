package frame

import (
	"image"
	"log/slog"
	"math"

	"github.com/vaultlens/vaultlens/internal/condition"
	"github.com/vaultlens/vaultlens/internal/consensus"
	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/score"
)

// tags for recognition attempts; the REC pass gets a fixed score bonus
// because it is empirically the most reliable single view for
// bright-on-dark crops.
const (
	tagRaw     = "raw"
	tagEnh     = "enh"
	tagInv     = "inv"
	tagNorm    = "norm"
	tagBin     = "bin"
	tagREC     = "REC"
	tagRelaxed = "bright_relaxed"
	tagVote    = "vote"
)

type attempt struct {
	dets []engine.Detection
	text string
	tag  string
}

func (p *Pipeline) recognizePass(img *image.Gray, opts engine.Options, tag string) attempt {
	dets, err := p.Engine.Recognize(img, opts)
	if err != nil {
		p.log().Debug("recognition pass failed", slog.String("tag", tag), slog.Any("error", err))
		dets = nil
	}
	return attempt{dets: dets, text: score.CombineTokens(dets), tag: tag}
}

func bestAttempt(attempts []attempt) attempt {
	best := attempts[0]
	bestScore := score.ScoreResult(best.dets, best.text)
	for _, a := range attempts[1:] {
		if s := score.ScoreResult(a.dets, a.text); s > bestScore {
			best = a
			bestScore = s
		}
	}
	return best
}

// RunOnCrop runs the engine against the crop's conditioned variants
// following the per-regime pass state machine, then reconciles the
// attempts into one (detections, combined text) pair. maxPasses bounds
// how deep the variant list goes; allowBinFallback gates the slower
// binarized pass.
func (p *Pipeline) RunOnCrop(crop image.Image, allowBinFallback bool, maxPasses int) ([]engine.Detection, string) {
	variants := condition.BuildInputs(crop, 0)

	var attempts []attempt
	strict := engine.StrictOptions(p.Allowlist, p.BeamWidth)

	if variants.Regime == condition.RegimeBrightOnDark {
		attempts = p.runBrightPasses(crop, variants, strict, allowBinFallback, maxPasses)
	} else {
		ranked := rankByQuality(variants)
		attempts = append(attempts, p.recognizePass(ranked[0].img, strict, ranked[0].tag))
		best := bestAttempt(attempts)
		if maxPasses >= 2 && !score.IsGoodCandidate(best.dets, best.text) {
			attempts = append(attempts, p.recognizePass(ranked[1].img, strict, ranked[1].tag))
			best = bestAttempt(attempts)
		}
		if maxPasses >= 3 && allowBinFallback && !score.IsGoodCandidate(best.dets, best.text) {
			attempts = append(attempts, p.recognizePass(variants.BinInv, strict, tagBin))
		}
	}
	if len(attempts) == 0 {
		return nil, ""
	}

	return p.reconcileAttempts(attempts)
}

func (p *Pipeline) runBrightPasses(crop image.Image, variants condition.Variants,
	strict engine.Options, allowBinFallback bool, maxPasses int,
) []attempt {
	b := crop.Bounds()
	primaryScale := 3.0
	if minInt(b.Dx(), b.Dy()) >= 140 {
		primaryScale = 2.0
	}
	local := variants
	if math.Abs(primaryScale-variants.Scale) > 1e-6 {
		local = condition.BuildInputs(crop, primaryScale)
	}

	var attempts []attempt
	attempts = append(attempts, p.recognizePass(local.Raw, strict, tagRaw))
	attempts = append(attempts, p.recognizePass(local.Enhanced, strict, tagEnh))
	if maxPasses >= 2 && local.SharpInv != nil {
		attempts = append(attempts, p.recognizePass(local.SharpInv, strict, tagInv))
	}
	if maxPasses >= 3 && allowBinFallback {
		// Recommended pipeline: crop, upscale, Otsu, invert.
		attempts = append(attempts, p.recognizePass(local.BinInv, strict, tagREC))
	}

	cur := bestAttempt(attempts)
	curConf := score.CandidateConfidence(cur.dets)
	if !score.IsGoodCandidate(cur.dets, cur.text) || len(cur.text) < 15 || curConf < 0.88 {
		relaxed := engine.RelaxedOptions(p.Allowlist, p.BeamWidth)
		attempts = append(attempts, p.recognizePass(local.Enhanced, relaxed, tagRelaxed))

		// Hedge against the primary scale being wrong for this crop's
		// text size by repeating the triad at the other scale.
		altScale := 3.0
		if math.Abs(primaryScale-3.0) < 1e-6 {
			altScale = 2.0
		}
		alt := condition.BuildInputs(crop, altScale)
		attempts = append(attempts, p.recognizePass(alt.Raw, strict, tagRaw+"_alt"))
		attempts = append(attempts, p.recognizePass(alt.Enhanced, strict, tagEnh+"_alt"))
		if alt.SharpInv != nil {
			attempts = append(attempts, p.recognizePass(alt.SharpInv, strict, tagInv+"_alt"))
		}
	}

	var voteInputs []consensus.Weighted
	for _, a := range attempts {
		clean := score.Normalize(a.text, p.Allowlist)
		if len(clean) >= 8 {
			w := score.CandidateConfidence(a.dets)
			if w < 0.1 {
				w = 0.1
			}
			voteInputs = append(voteInputs, consensus.Weighted{Text: clean, Weight: w})
		}
	}
	if len(voteInputs) >= 2 {
		if voted := score.Normalize(consensus.PositionVote(voteInputs), p.Allowlist); voted != "" {
			// The synthetic vote borrows the strongest attempt's
			// detections since callers need geometry alongside text.
			best := bestAttempt(attempts)
			attempts = append(attempts, attempt{dets: best.dets, text: voted, tag: tagVote})
		}
	}
	return attempts
}

type taggedGray struct {
	img *image.Gray
	tag string
}

func rankByQuality(v condition.Variants) []taggedGray {
	ranked := []taggedGray{
		{v.Raw, tagRaw},
		{v.Enhanced, tagEnh},
		{v.Norm, tagNorm},
	}
	q := make([]float64, len(ranked))
	for i, r := range ranked {
		q[i] = condition.QualityScore(r.img)
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if q[j] > q[i] {
				ranked[i], ranked[j] = ranked[j], ranked[i]
				q[i], q[j] = q[j], q[i]
			}
		}
	}
	return ranked
}

type weightedEntry struct {
	dets   []engine.Detection
	text   string
	base   float64
	conf   float64
	weight float64
}

// reconcileAttempts normalizes every attempt, clusters near-duplicates
// greedily (strongest base score seeds first), position-votes inside
// the winning cluster and picks a representative detections list, then
// lets the whole-population consensus override the text when it agrees
// within the distance threshold.
func (p *Pipeline) reconcileAttempts(attempts []attempt) ([]engine.Detection, string) {
	type normAttempt struct {
		dets  []engine.Detection
		text  string
		bonus float64
		tag   string
	}
	norm := make([]normAttempt, 0, len(attempts))
	for _, a := range attempts {
		clean := score.Normalize(a.text, p.Allowlist)
		bonus := 0.0
		if a.tag == tagREC {
			bonus = p.RecBonus
		}
		norm = append(norm, normAttempt{dets: a.dets, text: clean, bonus: bonus, tag: a.tag})
		p.log().Debug("crop candidate",
			slog.String("tag", a.tag),
			slog.Float64("conf", score.CandidateConfidence(a.dets)),
			slog.Float64("score", score.ScoreResult(a.dets, clean)+bonus))
	}

	entries := make([]weightedEntry, 0, len(norm))
	for _, a := range norm {
		if a.text == "" {
			continue
		}
		weight := 1.0
		if a.tag == tagVote {
			// A vote is a synthetic aggregate of the same pass list;
			// its reduced weight keeps it from dominating
			// repeated-evidence scoring on its own.
			weight = 0.45
		}
		entries = append(entries, weightedEntry{
			dets:   a.dets,
			text:   a.text,
			base:   score.ScoreResult(a.dets, a.text) + a.bonus,
			conf:   score.CandidateConfidence(a.dets),
			weight: weight,
		})
	}
	if len(entries) == 0 {
		best := norm[0]
		bestScore := math.Inf(-1)
		for _, a := range norm {
			if s := score.ScoreResult(a.dets, a.text) + a.bonus; s > bestScore {
				bestScore = s
				best = a
			}
		}
		return best.dets, best.text
	}

	clusters := clusterEntries(entries)
	winner, combined := p.rankClusters(clusters)

	chosen := winner[0]
	chosenRank := math.Inf(-1)
	for _, item := range winner {
		maxDist := consensus.DistanceThreshold(maxInt(len(combined), len(item.text)))
		dist := consensus.BoundedLevenshtein(combined, item.text, maxDist)
		r := item.base*0.06 + item.conf*1.8 - float64(dist)*1.1
		if r > chosenRank {
			chosenRank = r
			chosen = item
		}
	}

	// The whole-set consensus has seen the full candidate population;
	// prefer its text when it lands within the distance threshold.
	all := make([]score.Candidate, 0, len(norm))
	for _, a := range norm {
		all = append(all, score.Candidate{Detections: a.dets, Text: a.text})
	}
	if consensusText, _ := consensus.SelectCandidate(all, p.Allowlist); consensusText != "" {
		maxDist := consensus.DistanceThreshold(maxInt(len(combined), len(consensusText)))
		gap := len(combined) - len(consensusText)
		if gap < 0 {
			gap = -gap
		}
		if gap <= maxDist && consensus.BoundedLevenshtein(combined, consensusText, maxDist) <= maxDist {
			combined = consensusText
		}
	}
	return chosen.dets, combined
}

type entryCluster struct {
	seed     string
	bestBase float64
	items    []weightedEntry
}

func clusterEntries(entries []weightedEntry) []*entryCluster {
	ordered := append([]weightedEntry(nil), entries...)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].base > ordered[i].base {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	var clusters []*entryCluster
	for _, e := range ordered {
		placed := false
		for _, cl := range clusters {
			maxDist := consensus.DistanceThreshold(maxInt(len(cl.seed), len(e.text)))
			gap := len(cl.seed) - len(e.text)
			if gap < 0 {
				gap = -gap
			}
			if gap > maxDist {
				continue
			}
			if consensus.BoundedLevenshtein(cl.seed, e.text, maxDist) <= maxDist {
				cl.items = append(cl.items, e)
				if e.base > cl.bestBase {
					cl.bestBase = e.base
					cl.seed = e.text
				}
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, &entryCluster{seed: e.text, bestBase: e.base, items: []weightedEntry{e}})
		}
	}
	return clusters
}

func (p *Pipeline) rankClusters(clusters []*entryCluster) ([]weightedEntry, string) {
	var bestItems []weightedEntry
	bestVoted := ""
	bestRank := math.Inf(-1)
	for _, cl := range clusters {
		support := 0.0
		votes := make([]consensus.Weighted, 0, len(cl.items))
		for _, item := range cl.items {
			support += item.weight
			w := item.conf
			if w < 0.05 {
				w = 0.05
			}
			l := float64(len(item.text))
			if l < 1 {
				l = 1
			}
			votes = append(votes, consensus.Weighted{Text: item.text, Weight: w * l})
		}
		voted := score.Normalize(score.BestTextWindow(consensus.PositionVote(votes), p.Allowlist), p.Allowlist)
		if voted == "" {
			voted = cl.seed
		}
		peakBase := math.Inf(-1)
		var confSum float64
		for _, item := range cl.items {
			if item.base > peakBase {
				peakBase = item.base
			}
			confSum += item.conf * item.weight
		}
		avgConf := confSum / math.Max(0.01, support)
		rank := peakBase +
			math.Min(5.0, math.Max(0, support-1.0)*1.8) +
			avgConf*1.1 +
			score.PatternScore(voted)*0.12
		if rank > bestRank {
			bestRank = rank
			bestItems = cl.items
			bestVoted = voted
		}
	}
	return bestItems, bestVoted
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
