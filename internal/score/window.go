package score

import "strings"

// Sanitize strips characters outside the allowlist.
func Sanitize(text, allowlist string) string {
	if text == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if strings.IndexByte(allowlist, text[i]) >= 0 {
			sb.WriteByte(text[i])
		}
	}
	return sb.String()
}

// Normalize sanitizes and collapses repeated underscores. Idempotent.
func Normalize(text, allowlist string) string {
	text = Sanitize(text, allowlist)
	if text == "" {
		return text
	}
	for strings.Contains(text, "__") {
		text = strings.ReplaceAll(text, "__", "_")
	}
	return text
}

func windowLengthPrior(l int) float64 {
	switch {
	case l >= 14 && l <= 18:
		return 1.8
	case l > 18:
		return 1.8 - float64(l-18)*1.2
	default:
		return 1.8 - float64(14-l)*0.5
	}
}

func windowScore(sub string) float64 {
	s := PatternScore(sub) + float64(len(sub))*0.22 + windowLengthPrior(len(sub))
	// Trailing isolated digit is usually UI noise, not token content.
	if len(sub) >= 2 && isDigit(sub[len(sub)-1]) && !isDigit(sub[len(sub)-2]) {
		s -= 0.3
	}
	return s
}

// BestTextWindow slides a 12-18 character window over a noisy string and
// returns the subrange that looks most like the target token, recovering
// it when recognition accreted extra leading or trailing characters.
// Applying it twice yields the same result as once.
func BestTextWindow(text, allowlist string) string {
	text = Sanitize(text, allowlist)
	if text == "" {
		return ""
	}

	n := len(text)
	best := text
	bestScore := windowScore(text)

	minLen := 12
	if n < 12 {
		minLen = n
	}
	maxLen := 18
	if n < 18 {
		maxLen = n
	}
	for winLen := minLen; winLen <= maxLen; winLen++ {
		for i := 0; i+winLen <= n; i++ {
			sub := text[i : i+winLen]
			if s := windowScore(sub); s > bestScore+1e-6 {
				bestScore = s
				best = sub
			}
		}
	}
	return best
}
