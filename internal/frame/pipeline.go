package frame

import (
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/vaultlens/vaultlens/internal/condition"
	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/utils"
)

// Pipeline holds the recognition engine plus the tuning knobs shared by
// every stage of single-frame processing. The zero value is not usable;
// construct with New.
type Pipeline struct {
	Engine engine.Engine

	Allowlist      string
	BeamWidth      int
	RecBonus       float64
	FastMode       bool
	MaxSide        int
	MinROIContrast float64

	// DebugDir, when non-empty, receives PNG dumps of intermediate
	// views (warped screen, ROI crops).
	DebugDir string

	Logger *slog.Logger
}

// Result is the outcome of processing one frame.
type Result struct {
	Text       string
	Confidence float64
	Clipped    bool
}

func New(eng engine.Engine) *Pipeline {
	return &Pipeline{
		Engine:         eng,
		Allowlist:      engine.DefaultAllowlist,
		BeamWidth:      10,
		RecBonus:       0.45,
		FastMode:       true,
		MaxSide:        1120,
		MinROIContrast: 25,
	}
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// prepassEnhance lifts local contrast on the luminance channel and
// applies a mild unsharp mask before any localization runs. Screen
// glare and dim captures both benefit, and the downstream stages all
// read from this view.
func prepassEnhance(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	gray := utils.ToGray(src)
	eq := condition.CLAHE(gray, 2.0, 8)

	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := src.PixOffset(x, y)
			gi := gray.PixOffset(x, y)
			l := gray.Pix[gi]
			e := eq.Pix[eq.PixOffset(x, y)]
			ratio := 1.0
			if l > 0 {
				ratio = float64(e) / float64(l)
			}
			oi := out.PixOffset(x, y)
			out.Pix[oi+0] = clampByte(float64(src.Pix[si+0]) * ratio)
			out.Pix[oi+1] = clampByte(float64(src.Pix[si+1]) * ratio)
			out.Pix[oi+2] = clampByte(float64(src.Pix[si+2]) * ratio)
			out.Pix[oi+3] = src.Pix[si+3]
		}
	}

	blurred := imaging.Blur(out, 3.0)
	sharp := image.NewNRGBA(out.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		sharp.Pix[i+0] = clampByte(1.5*float64(out.Pix[i+0]) - 0.5*float64(blurred.Pix[i+0]))
		sharp.Pix[i+1] = clampByte(1.5*float64(out.Pix[i+1]) - 0.5*float64(blurred.Pix[i+1]))
		sharp.Pix[i+2] = clampByte(1.5*float64(out.Pix[i+2]) - 0.5*float64(blurred.Pix[i+2]))
		sharp.Pix[i+3] = out.Pix[i+3]
	}
	return sharp
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
