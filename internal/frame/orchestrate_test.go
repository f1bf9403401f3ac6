package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultlens/vaultlens/internal/testutil"
)

func mkAttempt(text string, conf float64, tag string) attempt {
	dets := testutil.TokenDetection(text, conf)
	return attempt{dets: dets, text: text, tag: tag}
}

func TestBestAttempt(t *testing.T) {
	weak := mkAttempt("ab", 0.3, tagRaw)
	strong := mkAttempt(sampleToken, 0.9, tagEnh)
	got := bestAttempt([]attempt{weak, strong})
	assert.Equal(t, tagEnh, got.tag)
}

func TestReconcileAttempts(t *testing.T) {
	p := New(&testutil.FakeEngine{})

	t.Run("all empty", func(t *testing.T) {
		dets, text := p.reconcileAttempts([]attempt{
			{tag: tagRaw},
			{tag: tagEnh},
		})
		assert.Empty(t, dets)
		assert.Equal(t, "", text)
	})

	t.Run("agreeing attempts converge on the token", func(t *testing.T) {
		dets, text := p.reconcileAttempts([]attempt{
			mkAttempt(sampleToken, 0.9, tagRaw),
			mkAttempt(sampleToken, 0.85, tagEnh),
			mkAttempt("T3*1-B?+AcJ3@_9I", 0.6, tagBin),
		})
		require.NotEmpty(t, dets)
		assert.Equal(t, sampleToken, text)
	})

	t.Run("bonus pass beats an equal ordinary pass", func(t *testing.T) {
		// Same text and confidence; the tag decides the winning
		// detections when the texts already agree.
		_, text := p.reconcileAttempts([]attempt{
			mkAttempt(sampleToken, 0.8, tagRaw),
			mkAttempt(sampleToken, 0.8, tagREC),
		})
		assert.Equal(t, sampleToken, text)
	})
}
