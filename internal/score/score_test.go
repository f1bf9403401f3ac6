package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/utils"
)

func det(text string, conf float64, quad utils.Quad) engine.Detection {
	return engine.Detection{Quad: quad, Text: text, Confidence: conf}
}

func quadAt(x, y, w, h float64) utils.Quad {
	return utils.Quad{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

func TestCandidateConfidence(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, CandidateConfidence(nil))
		assert.Equal(t, 0.0, CandidateConfidence([]engine.Detection{det("   ", 0.9, quadAt(0, 0, 10, 10))}))
	})

	t.Run("length weighted", func(t *testing.T) {
		dets := []engine.Detection{
			det("ab", 0.4, quadAt(0, 0, 10, 10)),
			det("abcdefgh", 0.9, quadAt(20, 0, 40, 10)),
		}
		// (0.4*2 + 0.9*8) / 10
		assert.InDelta(t, 0.80, CandidateConfidence(dets), 1e-9)
	})
}

func TestIsGoodCandidate(t *testing.T) {
	long := "T3*1-B?+AcJ3@_9L"
	require.Len(t, long, 16)

	tests := []struct {
		name     string
		conf     float64
		combined string
		want     bool
	}{
		{"confident and long", 0.70, long, true},
		{"confident but short", 0.70, long[:10], false},
		{"long but weak", 0.40, long, false},
		{"empty", 0.90, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets := []engine.Detection{det(tt.combined, tt.conf, quadAt(0, 0, 100, 20))}
			assert.Equal(t, tt.want, IsGoodCandidate(dets, tt.combined))
		})
	}

	t.Run("single strong detection carries a long combined text", func(t *testing.T) {
		dets := []engine.Detection{
			det(long, 0.55, quadAt(0, 0, 100, 20)),
		}
		require.Less(t, CandidateConfidence(dets), 0.65)
		assert.True(t, IsGoodCandidate(dets, long))
	})
}

func TestScoreResult(t *testing.T) {
	base := quadAt(0, 0, 100, 20)

	t.Run("empty text scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, ScoreResult([]engine.Detection{det("a", 0.9, base)}, ""))
	})

	t.Run("length and confidence dominate", func(t *testing.T) {
		got := ScoreResult([]engine.Detection{det("abc", 0.5, base)}, "abc")
		assert.InDelta(t, 3*1.6+0.5*4.0, got, 1e-9)
	})

	t.Run("symbol bonus is capped", func(t *testing.T) {
		// Seven symbols would earn 3.15 uncapped; the cap holds it at 2.6.
		many := ScoreResult(nil, "a*b+c-d=e.f_g!hi")
		assert.InDelta(t, 16*1.6+2.6, many, 1e-9)
	})

	t.Run("symbol-digit-symbol insertions are penalized", func(t *testing.T) {
		clean := ScoreResult(nil, "abCDefGHij")
		noisy := ScoreResult(nil, "abC*1*fGHj")
		assert.Greater(t, clean, noisy)
	})

	t.Run("trailing digit runs are penalized", func(t *testing.T) {
		clean := ScoreResult(nil, "abcdefg")
		noisy := ScoreResult(nil, "abcd123")
		assert.InDelta(t, 2*1.35, clean-noisy, 1e-9)
	})

	t.Run("overlong text loses its bonus", func(t *testing.T) {
		sixteen := ScoreResult(nil, "T3*1-B?+AcJ3@_9L")
		padded := ScoreResult(nil, "T3*1-B?+AcJ3@_9Lxxxxxx")
		assert.Greater(t, sixteen+6*1.6, padded)
	})
}

func TestPatternScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", -999.0},
		{"password-like token", "T3*1-B?+AcJ3@_9L", 11.2},
		{"plain word of target length", "abcdefghijklmnop", 4.4},
		{"mixed but short", "T3*1-B?+", 3.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PatternScore(tt.text), 1e-9)
		})
	}

	t.Run("token outranks decoys", func(t *testing.T) {
		token := PatternScore("T3*1-B?+AcJ3@_9L")
		assert.Greater(t, token, PatternScore("abcdefghijklmnop"))
		assert.Greater(t, token, PatternScore("T3*1-B?+"))
	})

	t.Run("at-underscore order matters", func(t *testing.T) {
		ordered := PatternScore("aB3@cd_ef4gh")
		reversed := PatternScore("aB3_cd@ef4gh")
		assert.InDelta(t, 2.1, ordered-reversed, 1e-9)
	})
}

func TestCombineTokens(t *testing.T) {
	t.Run("empty and low confidence filtered", func(t *testing.T) {
		assert.Equal(t, "", CombineTokens(nil))
		assert.Equal(t, "", CombineTokens([]engine.Detection{
			det("junk", 0.1, quadAt(0, 0, 40, 20)),
			det("  ", 0.9, quadAt(0, 0, 40, 20)),
		}))
	})

	t.Run("single row concatenates left to right", func(t *testing.T) {
		dets := []engine.Detection{
			det("B?+Ac", 0.8, quadAt(120, 100, 80, 20)),
			det("T3*1-", 0.9, quadAt(10, 102, 80, 20)),
			det("J3@_9L", 0.7, quadAt(230, 98, 90, 20)),
		}
		assert.Equal(t, "T3*1-B?+AcJ3@_9L", CombineTokens(dets))
	})

	t.Run("most complete row wins", func(t *testing.T) {
		dets := []engine.Detection{
			det("Wi-Fi", 0.95, quadAt(10, 10, 60, 20)),
			det("T3*1-B?+", 0.8, quadAt(10, 200, 100, 20)),
			det("AcJ3@_9L", 0.8, quadAt(130, 202, 100, 20)),
		}
		assert.Equal(t, "T3*1-B?+AcJ3@_9L", CombineTokens(dets))
	})

	t.Run("far rows stay separate", func(t *testing.T) {
		dets := []engine.Detection{
			det("abcdef", 0.9, quadAt(10, 10, 80, 20)),
			det("xyz", 0.9, quadAt(10, 300, 40, 20)),
		}
		assert.Equal(t, "abcdef", CombineTokens(dets))
	})
}
