// Package score holds the heuristics that judge how plausible a
// recognized string is as the target screen token, and how confident
// the detections behind it are.
package score

import (
	"sort"
	"strings"

	"github.com/vaultlens/vaultlens/internal/engine"
)

// Candidate pairs the detections from one recognition attempt with the
// combined text derived from its best text row.
type Candidate struct {
	Detections []engine.Detection
	Text       string
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isAlnum(ch byte) bool {
	return isDigit(ch) || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

// CandidateConfidence is the length-weighted mean detection confidence
// over non-empty trimmed texts, or 0 when there are none.
func CandidateConfidence(dets []engine.Detection) float64 {
	var weighted, totalW float64
	for _, d := range dets {
		t := strings.TrimSpace(d.Text)
		if t == "" {
			continue
		}
		w := float64(len(t))
		if w < 1 {
			w = 1
		}
		weighted += d.Confidence * w
		totalW += w
	}
	if totalW <= 0 {
		return 0
	}
	return weighted / totalW
}

// HasStrongDetection reports whether any single detection is confident
// enough to anchor a candidate on its own.
func HasStrongDetection(dets []engine.Detection) bool {
	for _, d := range dets {
		if d.Confidence >= 0.50 && len(strings.TrimSpace(d.Text)) >= 2 {
			return true
		}
	}
	return false
}

// IsGoodCandidate reports whether a candidate is strong enough to stop
// escalating recovery passes.
func IsGoodCandidate(dets []engine.Detection, combined string) bool {
	if combined == "" {
		return false
	}
	if CandidateConfidence(dets) >= 0.65 && len(combined) >= 14 {
		return true
	}
	return HasStrongDetection(dets) && len(combined) >= 14
}

// ScoreResult is the base plausibility score for a candidate: longer
// text and higher confidence win, punctuation density helps up to a
// cap, and two common OCR artifacts are penalized (symbol-digit-symbol
// insertions and trailing digit runs from UI chrome).
func ScoreResult(dets []engine.Detection, combined string) float64 {
	if combined == "" {
		return 0
	}
	var avgConf float64
	if len(dets) > 0 {
		for _, d := range dets {
			avgConf += d.Confidence
		}
		avgConf /= float64(len(dets))
	}

	symbolCount := 0
	for i := 0; i < len(combined); i++ {
		if !isAlnum(combined[i]) {
			symbolCount++
		}
	}
	symbolBonus := float64(symbolCount) * 0.45
	if symbolBonus > 2.6 {
		symbolBonus = 2.6
	}
	if len(combined) > 18 {
		symbolBonus -= float64(len(combined)-18) * 2.1
	}

	penalty := 0.0
	for i := 1; i < len(combined)-1; i++ {
		if !isAlnum(combined[i-1]) && isDigit(combined[i]) && !isAlnum(combined[i+1]) {
			penalty += 1.6
		}
	}
	tailDigits := 0
	for i := len(combined) - 1; i >= 0 && isDigit(combined[i]); i-- {
		tailDigits++
	}
	if tailDigits >= 2 {
		penalty += float64(tailDigits-1) * 1.35
	}

	return float64(len(combined))*1.6 + avgConf*4.0 + symbolBonus - penalty
}

// PatternScore rewards the shape of a password-like token: mixed case,
// digits, symbols, the @..._ motif, and lengths around 12-18.
func PatternScore(text string) float64 {
	if text == "" {
		return -999.0
	}
	l := len(text)
	var upp, low, dig, sym int
	for i := 0; i < l; i++ {
		ch := text[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			upp++
		case ch >= 'a' && ch <= 'z':
			low++
		case isDigit(ch):
			dig++
		default:
			sym++
		}
	}

	s := 0.0
	if upp+low >= 3 {
		s += 1.6
	}
	if dig >= 2 {
		s += 1.2
	}
	if sym >= 2 {
		s += 1.5
	}
	at := strings.IndexByte(text, '@')
	if at >= 0 {
		s += 0.8
	}
	lastUnderscore := strings.LastIndexByte(text, '_')
	if lastUnderscore >= 0 {
		s += 0.7
	}
	if at >= 0 && lastUnderscore >= 0 && at < lastUnderscore {
		s += 2.1
	}
	if strings.IndexByte(text, '?') >= 0 {
		s += 0.5
	}
	switch {
	case l >= 12 && l <= 18:
		s += 2.8
	case l > 18:
		s -= float64(l-18) * 1.9
	case l < 8:
		s -= float64(8-l) * 1.5
	}
	return s
}

// CombineTokens assembles the combined text for a detection set: group
// detections into text rows by vertical proximity, keep the most
// complete row, and concatenate it left to right.
func CombineTokens(dets []engine.Detection) string {
	tokens := make([]token, 0, len(dets))
	for _, d := range dets {
		t := strings.TrimSpace(d.Text)
		if t == "" || d.Confidence < 0.2 {
			continue
		}
		minX, minY := d.Quad[0].X, d.Quad[0].Y
		maxX, maxY := d.Quad[0].X, d.Quad[0].Y
		for _, p := range d.Quad[1:] {
			if p.X < minX {
				minX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
		h := maxY - minY
		if h < 1 {
			h = 1
		}
		tokens = append(tokens, token{cy: (minY + maxY) * 0.5, x0: minX, text: t, conf: d.Confidence, h: h})
	}
	if len(tokens) == 0 {
		return ""
	}

	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].cy < tokens[j].cy })
	heights := make([]float64, len(tokens))
	for i, tok := range tokens {
		heights[i] = tok.h
	}
	rowTol := medianFloat(heights) * 0.85
	if rowTol < 16.0 {
		rowTol = 16.0
	}

	var rows [][]token
	for _, tok := range tokens {
		if len(rows) == 0 {
			rows = append(rows, []token{tok})
			continue
		}
		last := rows[len(rows)-1]
		if abs(tok.cy-last[len(last)-1].cy) <= rowTol {
			rows[len(rows)-1] = append(last, tok)
		} else {
			rows = append(rows, []token{tok})
		}
	}

	best := rows[0]
	bestLen, bestConf := rowTotals(best)
	for _, row := range rows[1:] {
		rl, rc := rowTotals(row)
		if rl > bestLen || (rl == bestLen && rc > bestConf) {
			best = row
			bestLen, bestConf = rl, rc
		}
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].x0 < best[j].x0 })
	var sb strings.Builder
	for _, tok := range best {
		sb.WriteString(tok.text)
	}
	return sb.String()
}

type token struct {
	cy   float64
	x0   float64
	text string
	conf float64
	h    float64
}

func rowTotals(row []token) (int, float64) {
	totalLen := 0
	totalConf := 0.0
	for _, t := range row {
		totalLen += len(t.text)
		totalConf += t.conf
	}
	return totalLen, totalConf
}

func medianFloat(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) * 0.5
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
