package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"

	"github.com/vaultlens/vaultlens/internal/mempool"
	"github.com/vaultlens/vaultlens/internal/utils"
)

// OCR is the ONNX-backed implementation of Engine: a PP-OCR detection
// model finds text boxes, a CTC recognition model reads each one.
type OCR struct {
	cfg       Config
	useGPU    bool
	detIn     string
	detOut    string
	recIn     string
	recOut    string
	det       *onnxrt.DynamicAdvancedSession
	rec       *onnxrt.DynamicAdvancedSession
	charset   *Charset
	recHeight int
	mu        sync.RWMutex
}

// New constructs the engine. When the GPU provider fails, construction
// retries once on CPU before giving up. ForceGPU only steers the initial
// provider choice, never the fallback.
func New(cfg Config) (*OCR, error) {
	return newEngine(cfg, build)
}

func newEngine(cfg Config, buildFn func(Config, bool) (*OCR, error)) (*OCR, error) {
	useGPU := wantGPU(cfg)
	o, err := buildFn(cfg, useGPU)
	if err != nil && useGPU {
		slog.Warn("GPU engine init failed, retrying on CPU", slog.Any("error", err))
		o, err = buildFn(cfg, false)
	}
	if err != nil {
		return nil, fmt.Errorf("engine init: %w", err)
	}
	return o, nil
}

func build(cfg Config, useGPU bool) (*OCR, error) {
	for _, path := range []string{cfg.detectionModelPath(), cfg.recognitionModelPath(), cfg.dictionaryPath()} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("model file not found: %s", path)
		}
	}
	if err := ensureRuntime(useGPU); err != nil {
		return nil, err
	}
	charset, err := LoadCharset(cfg.dictionaryPath())
	if err != nil {
		return nil, err
	}

	o := &OCR{cfg: cfg, useGPU: useGPU, charset: charset, recHeight: cfg.ImageHeight}
	o.det, o.detIn, o.detOut, err = newSession(cfg.detectionModelPath(), useGPU, cfg.NumThreads, nil)
	if err != nil {
		return nil, fmt.Errorf("detection session: %w", err)
	}
	var modelH int
	o.rec, o.recIn, o.recOut, err = newSession(cfg.recognitionModelPath(), useGPU, cfg.NumThreads, &modelH)
	if err != nil {
		_ = o.det.Destroy()
		return nil, fmt.Errorf("recognition session: %w", err)
	}
	if o.recHeight <= 0 {
		if modelH > 0 {
			o.recHeight = modelH
		} else {
			o.recHeight = 48
		}
	}
	slog.Debug("engine ready",
		slog.Bool("gpu", useGPU),
		slog.Int("charset", charset.Size()),
		slog.Int("rec_height", o.recHeight))
	return o, nil
}

func newSession(modelPath string, useGPU bool, threads int, fixedHeight *int) (*onnxrt.DynamicAdvancedSession, string, string, error) {
	inputs, outputs, err := onnxrt.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, "", "", fmt.Errorf("model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, "", "", fmt.Errorf("expected 1 input and 1 output, got %d/%d", len(inputs), len(outputs))
	}
	if fixedHeight != nil && len(inputs[0].Dimensions) == 4 {
		if h := inputs[0].Dimensions[2]; h > 0 {
			*fixedHeight = int(h)
		}
	}
	opts, err := newSessionOptions(useGPU, threads)
	if err != nil {
		return nil, "", "", err
	}
	defer func() { _ = opts.Destroy() }()
	session, err := onnxrt.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, "", "", fmt.Errorf("create session: %w", err)
	}
	return session, inputs[0].Name, outputs[0].Name, nil
}

// Close releases both sessions.
func (o *OCR) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.det != nil {
		_ = o.det.Destroy()
		o.det = nil
	}
	if o.rec != nil {
		_ = o.rec.Destroy()
		o.rec = nil
	}
	return nil
}

// Recognize runs detection then per-box recognition on img.
func (o *OCR) Recognize(img image.Image, opts Options) ([]Detection, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	o.mu.RLock()
	det, rec := o.det, o.rec
	o.mu.RUnlock()
	if det == nil || rec == nil {
		return nil, errors.New("engine is closed")
	}

	boxes, err := o.detectBoxes(img, opts)
	if err != nil {
		return nil, err
	}

	var out []Detection
	for _, box := range boxes {
		crop := utils.CropRect(img, box.Rect)
		text, conf, err := o.recognizeBox(crop, opts)
		if err != nil {
			slog.Debug("box recognition failed", slog.Any("error", err))
			continue
		}
		if text == "" {
			continue
		}
		out = append(out, Detection{
			Quad: utils.Quad{
				{X: float64(box.Rect.Min.X), Y: float64(box.Rect.Min.Y)},
				{X: float64(box.Rect.Max.X), Y: float64(box.Rect.Min.Y)},
				{X: float64(box.Rect.Max.X), Y: float64(box.Rect.Max.Y)},
				{X: float64(box.Rect.Min.X), Y: float64(box.Rect.Max.Y)},
			},
			Text:       text,
			Confidence: conf,
		})
	}
	return out, nil
}

func (o *OCR) detectBoxes(img image.Image, opts Options) ([]textBox, error) {
	b := img.Bounds()
	inW, inH := detInputSize(b.Dx(), b.Dy(), o.cfg.MaxDetSide)
	resized := imaging.Resize(img, inW, inH, imaging.Linear)
	data, w, h := normalizeNCHW(resized)

	probMap, shape, err := o.run(o.det, data, []int64{1, 3, int64(h), int64(w)})
	mempool.PutFloat32(data)
	if err != nil {
		return nil, fmt.Errorf("detection inference: %w", err)
	}
	mapW, mapH := w, h
	if len(shape) == 4 {
		mapH = int(shape[2])
		mapW = int(shape[3])
	}
	boxes := extractBoxes(probMap, mapW, mapH, opts)
	scaleX := float64(b.Dx()) / float64(mapW)
	scaleY := float64(b.Dy()) / float64(mapH)
	return projectBoxes(boxes, scaleX, scaleY, b.Dx(), b.Dy(), opts.MinSize, opts.Margin), nil
}

func (o *OCR) recognizeBox(crop image.Image, opts Options) (string, float64, error) {
	cb := crop.Bounds()
	if cb.Dx() < 2 || cb.Dy() < 2 {
		return "", 0, nil
	}
	targetH := o.recHeight
	newW := int(float64(cb.Dx()) * float64(targetH) / float64(cb.Dy()))
	if newW < 8 {
		newW = 8
	}
	if newW > 1536 {
		newW = 1536
	}
	resized := imaging.Resize(crop, newW, targetH, imaging.Lanczos)
	if rem := newW % 8; rem != 0 {
		canvas := imaging.New(newW+8-rem, targetH, color.Black)
		resized = imaging.Paste(canvas, resized, image.Pt(0, 0))
		newW += 8 - rem
	}
	data, w, h := normalizeNCHW(resized)

	logits, shape, err := o.run(o.rec, data, []int64{1, 3, int64(h), int64(w)})
	mempool.PutFloat32(data)
	if err != nil {
		return "", 0, fmt.Errorf("recognition inference: %w", err)
	}

	blank := 0
	classesGuess := o.charset.Size() + 1
	var seq decodedSequence
	if strings.EqualFold(opts.Decoder, "beamsearch") && opts.BeamWidth > 1 {
		seq = decodeBeam(logits, shape, blank, opts.BeamWidth, classesGuess)
	} else {
		seq = decodeGreedy(logits, shape, blank, classesGuess)
	}

	var sb strings.Builder
	var probs []float64
	for i, idx := range seq.Collapsed {
		tok := o.charset.LookupToken(idx - 1)
		if tok == "" {
			continue
		}
		if opts.Allowlist != "" && !tokenAllowed(tok, opts.Allowlist) {
			continue
		}
		sb.WriteString(tok)
		if i < len(seq.CollapsedProb) {
			probs = append(probs, seq.CollapsedProb[i])
		}
	}
	return sb.String(), sequenceConfidence(probs), nil
}

func tokenAllowed(tok, allowlist string) bool {
	for _, r := range tok {
		if !strings.ContainsRune(allowlist, r) {
			return false
		}
	}
	return true
}

func (o *OCR) run(session *onnxrt.DynamicAdvancedSession, data []float32, shape []int64) ([]float32, []int64, error) {
	input, err := onnxrt.NewTensor(onnxrt.NewShape(shape...), data)
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				_ = out.Destroy()
			}
		}
	}()

	floatTensor, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 output tensor, got %T", outputs[0])
	}
	raw := floatTensor.GetData()
	data = make([]float32, len(raw))
	copy(data, raw)
	outShape := outputs[0].GetShape()
	shapeCopy := make([]int64, len(outShape))
	copy(shapeCopy, outShape)
	return data, shapeCopy, nil
}

// detInputSize fits (w,h) under maxSide and rounds both dimensions to
// multiples of 32 as the detection model requires.
func detInputSize(w, h, maxSide int) (int, int) {
	if maxSide <= 0 {
		maxSide = 960
	}
	scale := 1.0
	longest := w
	if h > longest {
		longest = h
	}
	if longest > maxSide {
		scale = float64(maxSide) / float64(longest)
	}
	outW := roundTo32(int(float64(w) * scale))
	outH := roundTo32(int(float64(h) * scale))
	return outW, outH
}

func roundTo32(v int) int {
	if v < 32 {
		return 32
	}
	return (v / 32) * 32
}

// normalizeNCHW converts to RGB float32 in [0,1], channel-planar. The
// returned buffer is pooled; callers hand it back via mempool.PutFloat32
// once the inference that consumed it has run.
func normalizeNCHW(img image.Image) ([]float32, int, int) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()
	data := mempool.GetFloat32(3 * w * h)
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := nrgba.PixOffset(x, y)
			idx := y*w + x
			data[idx] = float32(nrgba.Pix[i+0]) / 255.0
			data[plane+idx] = float32(nrgba.Pix[i+1]) / 255.0
			data[2*plane+idx] = float32(nrgba.Pix[i+2]) / 255.0
		}
	}
	return data, w, h
}
