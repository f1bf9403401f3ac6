// Package testutil provides synthetic phone-screen frames and a
// scriptable recognition engine for pipeline tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PhoneFrameConfig describes a synthetic webcam frame showing a phone
// screen with a token rendered on it.
type PhoneFrameConfig struct {
	Width, Height int
	Token         string
	// BrightOnDark renders light text on a dark screen, the common
	// password-manager theme.
	BrightOnDark bool
	// TextScale upscales the bitmap font to emulate larger glyphs.
	TextScale int
	// Rotation tilts the whole frame in degrees.
	Rotation float64
}

// DefaultPhoneFrameConfig returns a 640x480 bright-on-dark frame.
func DefaultPhoneFrameConfig() PhoneFrameConfig {
	return PhoneFrameConfig{
		Width:        640,
		Height:       480,
		Token:        "T3*1-B?+AcJ3@_9L",
		BrightOnDark: true,
		TextScale:    2,
	}
}

// GeneratePhoneFrame draws a dim room background, a phone-screen
// rectangle roughly centered, and the token on one text line inside it.
func GeneratePhoneFrame(cfg PhoneFrameConfig) *image.NRGBA {
	if cfg.TextScale < 1 {
		cfg.TextScale = 1
	}
	frame := image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(frame, frame.Bounds(), &image.Uniform{color.NRGBA{28, 26, 30, 255}}, image.Point{}, draw.Src)

	// Screen occupies the central ~55% of the frame, portrait-ish.
	sw := cfg.Width * 45 / 100
	sh := cfg.Height * 70 / 100
	sx := (cfg.Width - sw) / 2
	sy := (cfg.Height - sh) / 2
	screenRect := image.Rect(sx, sy, sx+sw, sy+sh)

	screenBg := color.NRGBA{18, 18, 22, 255}
	textFg := color.NRGBA{235, 235, 240, 255}
	if !cfg.BrightOnDark {
		screenBg = color.NRGBA{235, 235, 238, 255}
		textFg = color.NRGBA{25, 25, 30, 255}
	}
	draw.Draw(frame, screenRect, &image.Uniform{screenBg}, image.Point{}, draw.Src)

	if cfg.Token != "" {
		text := renderToken(cfg.Token, textFg, screenBg, cfg.TextScale)
		tb := text.Bounds()
		// Place the token line slightly above screen center, where a
		// password field typically sits.
		tx := screenRect.Min.X + (sw-tb.Dx())/2
		ty := screenRect.Min.Y + sh*40/100
		draw.Draw(frame, image.Rect(tx, ty, tx+tb.Dx(), ty+tb.Dy()), text, tb.Min, draw.Over)
	}

	if cfg.Rotation != 0 {
		rotated := imaging.Rotate(frame, cfg.Rotation, color.NRGBA{28, 26, 30, 255})
		return imaging.Clone(rotated)
	}
	return frame
}

func renderToken(token string, fg, bg color.NRGBA, scale int) *image.NRGBA {
	face := basicfont.Face7x13
	w := font.MeasureString(face, token).Ceil() + 8
	h := face.Metrics().Height.Ceil() + 6
	small := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	drawer := &font.Drawer{
		Dst:  small,
		Src:  &image.Uniform{fg},
		Face: face,
		Dot:  fixed.P(4, face.Metrics().Ascent.Ceil()+3),
	}
	drawer.DrawString(token)
	if scale == 1 {
		return small
	}
	return imaging.Resize(small, w*scale, h*scale, imaging.NearestNeighbor)
}

// EncodeFrameUnit encodes img as PNG behind a 4-byte little-endian
// length prefix, one unit of the frame stream protocol.
func EncodeFrameUnit(t *testing.T, img image.Image) []byte {
	t.Helper()
	var payload bytes.Buffer
	require.NoError(t, png.Encode(&payload, img))
	unit := make([]byte, 4+payload.Len())
	binary.LittleEndian.PutUint32(unit[:4], uint32(payload.Len()))
	copy(unit[4:], payload.Bytes())
	return unit
}
