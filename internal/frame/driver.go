package frame

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/vaultlens/vaultlens/internal/consensus"
	"github.com/vaultlens/vaultlens/internal/locate"
	"github.com/vaultlens/vaultlens/internal/roi"
	"github.com/vaultlens/vaultlens/internal/score"
	"github.com/vaultlens/vaultlens/internal/utils"
)

type roiAttempt struct {
	rect image.Rectangle
	cand score.Candidate
}

// ProcessFrame runs the full single-frame pipeline: locate the phone
// screen, propose ROIs on the warped view, recognize each ROI with
// escalating recovery tiers, and reconcile everything into one token.
// An empty Result.Text means no plausible token was found.
func (p *Pipeline) ProcessFrame(frame image.Image) Result {
	base := utils.ResizeMax(frame, p.MaxSide)
	enhanced := prepassEnhance(base)

	screen := locate.DetectPhoneScreen(base, enhanced)
	var work image.Image = enhanced
	if screen != nil && screen.Warped != nil {
		work = screen.Warped
		p.log().Debug("screen located", slog.Any("bbox", screen.BBox))
	}
	p.dumpDebug(work, "work")

	wb := work.Bounds()
	gray := utils.ToGray(work)
	mask := roi.BuildTextMask(gray)

	var rois []image.Rectangle
	clipped := false
	if line, ok := roi.FindTextLine(mask); ok {
		rois = append(rois, line.Rect)
		if line.Clipped {
			clipped = true
			// A clipped band often means the token runs past the crop;
			// a full-width companion at the same rows catches the rest.
			full := image.Rect(0, line.Rect.Min.Y, wb.Dx(), line.Rect.Max.Y)
			rois = append(rois, full)
		}
	}

	maxBright := 7
	dedupeCap := 9
	if p.FastMode {
		maxBright = 5
		dedupeCap = 6
	}
	rois = append(rois, roi.ProposeBright(work, maxBright)...)
	rois = roi.Dedupe(rois, 0.62, dedupeCap)
	rois = roi.Prioritize(rois, wb.Dx(), wb.Dy())
	if len(rois) == 0 {
		rois = []image.Rectangle{image.Rect(0, 0, wb.Dx(), wb.Dy())}
	}

	passes := 3
	maxROIs := len(rois)
	if p.FastMode {
		passes = 2
		if maxROIs > 3 {
			maxROIs = 3
		}
	}

	var candidates []score.Candidate
	var attempts []roiAttempt
	var first score.Candidate
	for i := 0; i < maxROIs; i++ {
		r := rois[i]
		crop := utils.CropRect(work, r)
		p.dumpDebug(crop, fmt.Sprintf("roi%d", i))
		_, contrast := utils.MeanStd(utils.ToGray(crop))
		allowBin := !p.FastMode || (i == 0 && contrast >= p.MinROIContrast)
		dets, text := p.RunOnCrop(crop, allowBin, passes)
		cand := score.Candidate{Detections: dets, Text: text}
		candidates = append(candidates, cand)
		attempts = append(attempts, roiAttempt{rect: r, cand: cand})
		if i == 0 {
			first = cand
		}
		if score.IsGoodCandidate(dets, text) &&
			score.CandidateConfidence(dets) >= 0.86 && len(text) >= 16 {
			break
		}
	}

	cur := bestOf(candidates)
	if p.FastMode && !good(cur) {
		crop := utils.CropRect(work, rois[0])
		candidates, _ = p.addRun(candidates, crop, true, 3)
	}

	// The mirror pass keys off the first ROI's own read: a strong later
	// ROI says nothing about whether the primary line is mirrored.
	if !p.FastMode && !good(first) {
		mirror := utils.MirrorH(utils.CropRect(work, rois[0]))
		candidates, _ = p.addRun(candidates, mirror, true, 3)
	}

	if cur = bestOf(candidates); !good(cur) {
		expanded := roi.Expand(rois[0], wb.Dx(), wb.Dy(), 1.7, 1.9)
		crop := utils.CropRect(work, expanded)
		var exp score.Candidate
		candidates, exp = p.addRun(candidates, crop, true, passes)
		if !p.FastMode && !good(exp) {
			candidates, _ = p.addRun(candidates, utils.MirrorH(crop), true, 3)
		}
	}

	cur = bestOf(candidates)
	if score.CandidateConfidence(cur.Detections) < 0.80 || len(cur.Text) < 16 {
		for _, seed := range rotationSeeds(attempts, rois[0]) {
			crop := utils.CropRect(work, seed)
			for _, angle := range []float64{-8, -5, 5, 8} {
				candidates, _ = p.addRun(candidates, utils.RotateAbout(crop, angle), false, 2)
			}
		}
		cur = bestOf(candidates)
	}

	if !good(cur) || len(cur.Text) < 16 {
		candidates = p.fallbackViews(candidates, enhanced, screen)
		cur = bestOf(candidates)
	}

	combined := cur.Text
	consensusText, consensusConf := consensus.SelectCandidate(candidates, p.Allowlist)
	conf := score.CandidateConfidence(cur.Detections)
	if consensusText != "" {
		combined = consensusText
		conf = consensusConf
	}
	if combined != "" {
		combined = score.Normalize(score.BestTextWindow(combined, p.Allowlist), p.Allowlist)
	}
	if clipped {
		conf *= 0.70
	}
	return Result{Text: combined, Confidence: conf, Clipped: clipped}
}

func (p *Pipeline) addRun(cands []score.Candidate, crop image.Image, allowBin bool, passes int) ([]score.Candidate, score.Candidate) {
	b := crop.Bounds()
	if b.Dx() < 8 || b.Dy() < 8 {
		return cands, score.Candidate{}
	}
	dets, text := p.RunOnCrop(crop, allowBin, passes)
	cand := score.Candidate{Detections: dets, Text: text}
	return append(cands, cand), cand
}

// fallbackViews retries localization on the un-warped enhanced frame.
// A bad homography can mangle the token beyond recovery; the raw
// screen bbox and the full frame both get one more pass each.
func (p *Pipeline) fallbackViews(cands []score.Candidate, enhanced image.Image, screen *locate.ScreenRegion) []score.Candidate {
	var views []image.Image
	if screen != nil && screen.BBox.Dx() >= 8 && screen.BBox.Dy() >= 8 {
		views = append(views, utils.CropRect(enhanced, screen.BBox))
	}
	views = append(views, enhanced)
	for _, view := range views {
		var target image.Image = view
		mask := roi.BuildTextMask(utils.ToGray(view))
		if line, ok := roi.FindTextLine(mask); ok {
			target = utils.CropRect(view, line.Rect)
		}
		cands, _ = p.addRun(cands, target, true, 3)
	}
	return cands
}

func rotationSeeds(attempts []roiAttempt, fallback image.Rectangle) []image.Rectangle {
	type scored struct {
		rect image.Rectangle
		s    float64
	}
	var withText []scored
	for _, a := range attempts {
		if a.cand.Text != "" {
			withText = append(withText, scored{a.rect, score.ScoreResult(a.cand.Detections, a.cand.Text)})
		}
	}
	if len(withText) == 0 {
		return []image.Rectangle{fallback}
	}
	for i := 0; i < len(withText); i++ {
		for j := i + 1; j < len(withText); j++ {
			if withText[j].s > withText[i].s {
				withText[i], withText[j] = withText[j], withText[i]
			}
		}
	}
	n := len(withText)
	if n > 2 {
		n = 2
	}
	seeds := make([]image.Rectangle, 0, n)
	for _, sc := range withText[:n] {
		seeds = append(seeds, sc.rect)
	}
	return seeds
}

func good(c score.Candidate) bool {
	return score.IsGoodCandidate(c.Detections, c.Text)
}

func bestOf(cands []score.Candidate) score.Candidate {
	best := score.Candidate{}
	bestScore := math.Inf(-1)
	for _, c := range cands {
		if s := score.ScoreResult(c.Detections, c.Text); s > bestScore {
			bestScore = s
			best = c
		}
	}
	return best
}
