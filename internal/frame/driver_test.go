package frame

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/score"
	"github.com/vaultlens/vaultlens/internal/testutil"
	"github.com/vaultlens/vaultlens/internal/utils"
)

const sampleToken = "T3*1-B?+AcJ3@_9L"

// mirrorSensitiveEngine reads the token only when the textured half of
// the crop sits on the left, which is true exactly for mirrored views
// of texturedHalfFrame.
type mirrorSensitiveEngine struct{}

func (e *mirrorSensitiveEngine) Recognize(img image.Image, _ engine.Options) ([]engine.Detection, error) {
	b := img.Bounds()
	mid := b.Min.X + b.Dx()/2
	_, leftStd := utils.MeanStd(utils.ToGray(utils.CropRect(img, image.Rect(b.Min.X, b.Min.Y, mid, b.Max.Y))))
	_, rightStd := utils.MeanStd(utils.ToGray(utils.CropRect(img, image.Rect(mid, b.Min.Y, b.Max.X, b.Max.Y))))
	if leftStd > rightStd+10 {
		return testutil.TokenDetection(sampleToken, 0.9), nil
	}
	return nil, nil
}

// texturedHalfFrame is flat gray on the left and a bright checker on
// the right. The contrast asymmetry survives every conditioning variant
// except a horizontal flip, and no pixel is dark enough to register as
// a phone screen.
func texturedHalfFrame() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			v := uint8(128)
			if x >= 200 {
				v = 140
				if (x/4+y/4)%2 == 0 {
					v = 230
				}
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestProcessFrame(t *testing.T) {
	t.Run("token recovered from a synthetic phone frame", func(t *testing.T) {
		eng := &testutil.FakeEngine{
			Responses: [][]engine.Detection{testutil.TokenDetection(sampleToken, 0.92)},
		}
		p := New(eng)

		frame := testutil.GeneratePhoneFrame(testutil.DefaultPhoneFrameConfig())
		res := p.ProcessFrame(frame)

		assert.Equal(t, sampleToken, res.Text)
		assert.Greater(t, res.Confidence, 0.5)
	})

	t.Run("no detections yields empty result", func(t *testing.T) {
		p := New(&testutil.FakeEngine{})
		res := p.ProcessFrame(testutil.GeneratePhoneFrame(testutil.DefaultPhoneFrameConfig()))
		assert.Equal(t, "", res.Text)
		assert.Equal(t, 0.0, res.Confidence)
	})

	t.Run("engine errors degrade to empty result", func(t *testing.T) {
		p := New(&testutil.FakeEngine{Err: errors.New("session lost")})
		res := p.ProcessFrame(testutil.GeneratePhoneFrame(testutil.DefaultPhoneFrameConfig()))
		assert.Equal(t, "", res.Text)
	})

	t.Run("mirrored text recovered by the thorough-mode flip pass", func(t *testing.T) {
		p := New(&mirrorSensitiveEngine{})
		p.FastMode = false
		res := p.ProcessFrame(texturedHalfFrame())
		assert.Equal(t, sampleToken, res.Text)

		// Fast mode has no flip pass, so the same frame stays unread.
		pf := New(&mirrorSensitiveEngine{})
		res = pf.ProcessFrame(texturedHalfFrame())
		assert.Equal(t, "", res.Text)
	})

	t.Run("thorough mode runs more recognition passes", func(t *testing.T) {
		fast := &testutil.FakeEngine{}
		pf := New(fast)
		pf.ProcessFrame(testutil.GeneratePhoneFrame(testutil.DefaultPhoneFrameConfig()))

		thorough := &testutil.FakeEngine{}
		pt := New(thorough)
		pt.FastMode = false
		pt.ProcessFrame(testutil.GeneratePhoneFrame(testutil.DefaultPhoneFrameConfig()))

		assert.Greater(t, thorough.Calls, fast.Calls)
	})
}

func TestRunOnCrop(t *testing.T) {
	t.Run("returns detections and combined text", func(t *testing.T) {
		eng := &testutil.FakeEngine{
			Responses: [][]engine.Detection{testutil.TokenDetection(sampleToken, 0.9)},
		}
		p := New(eng)

		cfg := testutil.DefaultPhoneFrameConfig()
		crop := testutil.GeneratePhoneFrame(cfg)
		dets, text := p.RunOnCrop(crop, true, 3)

		require.NotEmpty(t, dets)
		assert.Equal(t, sampleToken, text)
		assert.Greater(t, eng.Calls, 0)
	})

	t.Run("empty engine output", func(t *testing.T) {
		p := New(&testutil.FakeEngine{})
		dets, text := p.RunOnCrop(testutil.GeneratePhoneFrame(testutil.DefaultPhoneFrameConfig()), true, 3)
		assert.Empty(t, dets)
		assert.Equal(t, "", text)
	})
}

func TestRotationSeeds(t *testing.T) {
	fallback := image.Rect(0, 0, 100, 40)

	t.Run("no text falls back", func(t *testing.T) {
		got := rotationSeeds(nil, fallback)
		assert.Equal(t, []image.Rectangle{fallback}, got)
	})

	t.Run("top two scored attempts win", func(t *testing.T) {
		a := roiAttempt{
			rect: image.Rect(0, 0, 50, 20),
			cand: score.Candidate{Detections: testutil.TokenDetection("ab", 0.3), Text: "ab"},
		}
		b := roiAttempt{
			rect: image.Rect(0, 40, 200, 80),
			cand: score.Candidate{Detections: testutil.TokenDetection(sampleToken, 0.9), Text: sampleToken},
		}
		c := roiAttempt{
			rect: image.Rect(0, 100, 160, 140),
			cand: score.Candidate{Detections: testutil.TokenDetection(sampleToken[:12], 0.8), Text: sampleToken[:12]},
		}
		got := rotationSeeds([]roiAttempt{a, b, c}, fallback)
		assert.Equal(t, []image.Rectangle{b.rect, c.rect}, got)
	})
}
