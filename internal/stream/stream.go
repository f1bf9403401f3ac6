// Package stream implements the length-prefixed frame protocol: each
// input unit is a 4-byte little-endian length followed by an encoded
// still image, each output unit is an optional FINAL line followed by
// a blank line.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	_ "image/jpeg"
	_ "image/png"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/frame"
)

// maxFrameBytes caps a single unit's payload. Webcam frames are a few
// MB at most; anything larger is a corrupted length prefix.
const maxFrameBytes = 64 << 20

// Worker consumes frames from In and writes results to Out, one frame
// in flight at a time. The recognition engine is constructed lazily on
// the first decodable frame and reused afterwards.
type Worker struct {
	In  io.Reader
	Out io.Writer

	Pipeline  *frame.Pipeline
	NewEngine func() (engine.Engine, error)

	Logger *slog.Logger
}

func (w *Worker) log() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Run processes units until EOF or ctx cancellation. Engine
// construction failure is the only fatal per-frame error.
func (w *Worker) Run(ctx context.Context) error {
	in := bufio.NewReader(w.In)
	out := bufio.NewWriter(w.Out)
	defer func() { _ = out.Flush() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := readUnit(in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame unit: %w", err)
		}

		img, _, err := image.Decode(bytes.NewReader(payload))
		if err != nil {
			w.log().Debug("frame decode failed", slog.Any("error", err))
			if err := endUnit(out); err != nil {
				return err
			}
			continue
		}

		if w.Pipeline.Engine == nil {
			eng, err := w.NewEngine()
			if err != nil {
				return fmt.Errorf("initialize recognition engine: %w", err)
			}
			w.Pipeline.Engine = eng
		}

		res := w.Pipeline.ProcessFrame(img)
		if res.Text != "" {
			if _, err := fmt.Fprintf(out, "FINAL\t%.4f\t%s\n", res.Confidence, res.Text); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
		}
		if err := endUnit(out); err != nil {
			return err
		}
	}
}

func readUnit(in *bufio.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(in, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > maxFrameBytes {
		return nil, fmt.Errorf("frame length %d exceeds limit", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(in, payload); err != nil {
		// A producer that dies mid-frame is an end of stream, not a
		// protocol error.
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

func endUnit(out *bufio.Writer) error {
	if err := out.WriteByte('\n'); err != nil {
		return fmt.Errorf("write unit terminator: %w", err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
