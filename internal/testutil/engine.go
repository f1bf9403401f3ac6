package testutil

import (
	"image"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/utils"
)

// FakeEngine is a scriptable engine.Engine: each Recognize call pops
// the next canned response, repeating the last one when exhausted.
type FakeEngine struct {
	Responses [][]engine.Detection
	Err       error
	Calls     int
}

// Recognize returns the scripted response for this call.
func (f *FakeEngine) Recognize(_ image.Image, _ engine.Options) ([]engine.Detection, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Responses) == 0 {
		return nil, nil
	}
	idx := f.Calls - 1
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	return f.Responses[idx], nil
}

// TokenDetection builds a single full-width detection reading text at
// the given confidence, convenient for scripting FakeEngine.
func TokenDetection(text string, conf float64) []engine.Detection {
	w := float64(10 * len(text))
	return []engine.Detection{{
		Quad: utils.Quad{
			{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: 20}, {X: 0, Y: 20},
		},
		Text:       text,
		Confidence: conf,
	}}
}
