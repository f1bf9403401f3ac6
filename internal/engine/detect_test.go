package engine

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probMap builds a detector map with the given rectangles filled at p.
func probMap(w, h int, p float32, rects ...image.Rectangle) []float32 {
	m := make([]float32, w*h)
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m[y*w+x] = p
			}
		}
	}
	return m
}

func TestExtractBoxes(t *testing.T) {
	opts := StrictOptions(DefaultAllowlist, 10)

	t.Run("empty map", func(t *testing.T) {
		assert.Empty(t, extractBoxes(probMap(40, 40, 0), 40, 40, opts))
	})

	t.Run("strong region survives", func(t *testing.T) {
		m := probMap(40, 40, 0.9, image.Rect(5, 10, 30, 16))
		boxes := extractBoxes(m, 40, 40, opts)
		require.Len(t, boxes, 1)
		assert.Equal(t, image.Rect(5, 10, 30, 16), boxes[0].Rect)
		assert.InDelta(t, 0.9, boxes[0].Score, 1e-6)
	})

	t.Run("weak peak rejected", func(t *testing.T) {
		// Above LowText so it forms a region, below TextThreshold so
		// the region does not survive.
		m := probMap(40, 40, 0.5, image.Rect(5, 10, 30, 16))
		assert.Empty(t, extractBoxes(m, 40, 40, opts))
	})

	t.Run("tiny specks rejected", func(t *testing.T) {
		m := probMap(40, 40, 0.95, image.Rect(3, 3, 4, 4))
		assert.Empty(t, extractBoxes(m, 40, 40, opts))
	})

	t.Run("row fragments merge", func(t *testing.T) {
		m := probMap(80, 40, 0.9,
			image.Rect(5, 10, 25, 16),
			image.Rect(28, 10, 50, 16),
		)
		boxes := extractBoxes(m, 80, 40, opts)
		require.Len(t, boxes, 1)
		assert.Equal(t, image.Rect(5, 10, 50, 16), boxes[0].Rect)
	})
}

func TestMergeRowBoxes(t *testing.T) {
	t.Run("different rows stay apart", func(t *testing.T) {
		boxes := []textBox{
			{Rect: image.Rect(0, 0, 30, 8), Score: 0.9},
			{Rect: image.Rect(0, 20, 30, 28), Score: 0.9},
		}
		assert.Len(t, mergeRowBoxes(boxes, 0.8), 2)
	})

	t.Run("wide gap stays apart", func(t *testing.T) {
		boxes := []textBox{
			{Rect: image.Rect(0, 0, 20, 8), Score: 0.9},
			{Rect: image.Rect(60, 0, 80, 8), Score: 0.9},
		}
		assert.Len(t, mergeRowBoxes(boxes, 0.8), 2)
	})

	t.Run("score is area weighted", func(t *testing.T) {
		boxes := []textBox{
			{Rect: image.Rect(0, 0, 30, 10), Score: 0.9}, // area 300
			{Rect: image.Rect(32, 0, 42, 10), Score: 0.6}, // area 100
		}
		merged := mergeRowBoxes(boxes, 0.8)
		require.Len(t, merged, 1)
		assert.Equal(t, image.Rect(0, 0, 42, 10), merged[0].Rect)
		assert.InDelta(t, (0.9*300+0.6*100)/400, merged[0].Score, 1e-9)
	})
}

func TestProjectBoxes(t *testing.T) {
	boxes := []textBox{{Rect: image.Rect(10, 10, 30, 20), Score: 0.9}}

	t.Run("scales and pads", func(t *testing.T) {
		out := projectBoxes(boxes, 2.0, 2.0, 200, 200, 8, 0)
		require.Len(t, out, 1)
		assert.Equal(t, image.Rect(20, 20, 60, 40), out[0].Rect)
	})

	t.Run("margin pads proportionally to height", func(t *testing.T) {
		out := projectBoxes(boxes, 1.0, 1.0, 200, 200, 4, 0.2)
		require.Len(t, out, 1)
		// Height 10: horizontal pad 2, vertical pad 1.
		assert.Equal(t, image.Rect(8, 9, 32, 21), out[0].Rect)
	})

	t.Run("undersized boxes dropped", func(t *testing.T) {
		out := projectBoxes(boxes, 1.0, 1.0, 200, 200, 30, 0)
		assert.Empty(t, out)
	})

	t.Run("clamped to image", func(t *testing.T) {
		edge := []textBox{{Rect: image.Rect(0, 0, 20, 10), Score: 0.9}}
		out := projectBoxes(edge, 1.0, 1.0, 15, 8, 2, 0.3)
		require.Len(t, out, 1)
		assert.True(t, out[0].Rect.In(image.Rect(0, 0, 15, 8)))
	})
}

func TestDetInputSize(t *testing.T) {
	tests := []struct {
		name      string
		w, h, max int
		wantW     int
		wantH     int
	}{
		{"small image rounds down to 32", 100, 50, 960, 96, 32},
		{"large image scales to cap", 1920, 1080, 960, 960, padlessRound(1080 * 960.0 / 1920.0)},
		{"tiny image floors at 32", 20, 10, 960, 32, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := detInputSize(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
			assert.Zero(t, w%32)
			assert.Zero(t, h%32)
		})
	}
}

func padlessRound(v float64) int {
	n := int(v)
	return (n / 32) * 32
}
