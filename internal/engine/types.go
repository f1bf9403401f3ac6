package engine

import (
	"image"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// DefaultAllowlist is the character set a screen token may contain.
const DefaultAllowlist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%&*+-=._?"

// Detection is one recognized text fragment: its quadrilateral in the
// coordinate space of the image handed to the engine, the decoded text
// and a confidence in [0,1].
type Detection struct {
	Quad       utils.Quad
	Text       string
	Confidence float64
}

// Options controls a single recognition pass.
type Options struct {
	Decoder       string  // decoding strategy, "beamsearch" or "greedy"
	BeamWidth     int     // beam width for beamsearch decoding
	Paragraph     bool    // group detections into paragraphs (always off here)
	TextThreshold float64 // detector score threshold for text regions
	LowText       float64 // detector low-bound threshold for region growth
	WidthTols     float64 // horizontal merge tolerance between fragments
	Margin        float64 // extra margin added around detected regions
	MinSize       int     // minimum glyph size in pixels
	Allowlist     string  // characters the decoder may emit
}

// StrictOptions is the default preset.
func StrictOptions(allowlist string, beamWidth int) Options {
	return Options{
		Decoder:       "beamsearch",
		BeamWidth:     beamWidth,
		Paragraph:     false,
		TextThreshold: 0.7,
		LowText:       0.3,
		WidthTols:     0.8,
		Margin:        0.0,
		MinSize:       8,
		Allowlist:     allowlist,
	}
}

// RelaxedOptions lowers thresholds and widens merging for low-contrast
// bright-on-dark crops. Used only as an escalation pass.
func RelaxedOptions(allowlist string, beamWidth int) Options {
	return Options{
		Decoder:       "beamsearch",
		BeamWidth:     beamWidth,
		Paragraph:     false,
		TextThreshold: 0.5,
		LowText:       0.2,
		WidthTols:     1.5,
		Margin:        0.15,
		MinSize:       6,
		Allowlist:     allowlist,
	}
}

// Engine is the external text recognition contract. Implementations are
// expensive to construct and are reused across frames.
type Engine interface {
	Recognize(img image.Image, opts Options) ([]Detection, error)
}
