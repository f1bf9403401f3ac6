package frame

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

var debugSeq atomic.Uint64

// dumpDebug writes an intermediate view to DebugDir when debugging is
// enabled. Failures only log; diagnostics never affect the result.
func (p *Pipeline) dumpDebug(img image.Image, stage string) {
	if p.DebugDir == "" || img == nil {
		return
	}
	if err := os.MkdirAll(p.DebugDir, 0o750); err != nil {
		p.log().Warn("debug dir", slog.Any("error", err))
		return
	}
	name := fmt.Sprintf("%06d_%s.png", debugSeq.Add(1), stage)
	if err := imaging.Save(imaging.Clone(img), filepath.Join(p.DebugDir, name)); err != nil {
		p.log().Warn("debug dump failed", slog.String("stage", stage), slog.Any("error", err))
	}
}
