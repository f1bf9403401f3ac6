package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/score"
	"github.com/vaultlens/vaultlens/internal/utils"
)

func candidate(text string, conf float64) score.Candidate {
	quad := utils.Quad{
		{X: 0, Y: 0},
		{X: float64(10 * len(text)), Y: 0},
		{X: float64(10 * len(text)), Y: 20},
		{X: 0, Y: 20},
	}
	return score.Candidate{
		Detections: []engine.Detection{{Quad: quad, Text: text, Confidence: conf}},
		Text:       text,
	}
}

func TestSelectCandidate(t *testing.T) {
	allow := engine.DefaultAllowlist
	token := "T3*1-B?+AcJ3@_9L"

	t.Run("empty population", func(t *testing.T) {
		text, conf := SelectCandidate(nil, allow)
		assert.Equal(t, "", text)
		assert.Equal(t, 0.0, conf)
	})

	t.Run("single candidate passes through", func(t *testing.T) {
		text, conf := SelectCandidate([]score.Candidate{candidate(token, 0.8)}, allow)
		assert.Equal(t, token, text)
		assert.InDelta(t, 0.8, conf, 1e-9)
	})

	t.Run("two clean reads outvote a transposed variant", func(t *testing.T) {
		text, conf := SelectCandidate([]score.Candidate{
			candidate(token, 0.8),
			candidate(token, 0.8),
			candidate("T31-B7+AcJ3@_9L", 0.8),
		}, allow)
		assert.Equal(t, token, text)
		assert.InDelta(t, 0.8, conf, 1e-9)
	})

	t.Run("majority outvotes a one-character misread", func(t *testing.T) {
		text, conf := SelectCandidate([]score.Candidate{
			candidate(token, 0.9),
			candidate("T3*1-B?+AcJ3@_9I", 0.6),
			candidate(token, 0.85),
		}, allow)
		assert.Equal(t, token, text)
		assert.InDelta(t, 0.9, conf, 1e-9)
	})

	t.Run("larger agreeing cluster beats a lone outlier", func(t *testing.T) {
		text, _ := SelectCandidate([]score.Candidate{
			candidate(token, 0.7),
			candidate(token, 0.75),
			candidate("Settings", 0.95),
		}, allow)
		assert.Equal(t, token, text)
	})

	t.Run("blank candidates are ignored", func(t *testing.T) {
		text, conf := SelectCandidate([]score.Candidate{
			candidate("", 0.9),
			candidate(token, 0.7),
		}, allow)
		assert.Equal(t, token, text)
		assert.InDelta(t, 0.7, conf, 1e-9)
	})
}
