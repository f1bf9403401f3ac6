// Package config is the configuration surface for the vaultlens
// pipeline: file, environment and flag settings merged through viper.
package config

import (
	"fmt"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/frame"
)

const (
	minMaxSide = 480
	maxMaxSide = 1920
)

// Config is the complete application configuration.
type Config struct {
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	Debug     bool   `mapstructure:"debug" yaml:"debug" json:"debug"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine" json:"engine"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig tunes single-frame processing.
type PipelineConfig struct {
	FastMode bool `mapstructure:"fast_mode" yaml:"fast_mode" json:"fast_mode"`
	// MaxSide caps the frame's longest side before any processing.
	// Zero picks 1120 in fast mode and 1280 otherwise.
	MaxSide   int `mapstructure:"max_side" yaml:"max_side" json:"max_side"`
	BeamWidth int `mapstructure:"beam_width" yaml:"beam_width" json:"beam_width"`
	// RecBonusPct is the binarized-pass score bonus in hundredths,
	// so 45 means +0.45.
	RecBonusPct    int     `mapstructure:"rec_bonus_pct" yaml:"rec_bonus_pct" json:"rec_bonus_pct"`
	Allowlist      string  `mapstructure:"allowlist" yaml:"allowlist" json:"allowlist"`
	MinROIContrast float64 `mapstructure:"min_roi_contrast" yaml:"min_roi_contrast" json:"min_roi_contrast"`
}

// EngineConfig tunes the ONNX recognition engine.
type EngineConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend" json:"backend"`
	ForceGPU    bool   `mapstructure:"force_gpu" yaml:"force_gpu" json:"force_gpu"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	ImageHeight int    `mapstructure:"image_height" yaml:"image_height" json:"image_height"`
	MaxDetSide  int    `mapstructure:"max_det_side" yaml:"max_det_side" json:"max_det_side"`
}

// ServerConfig tunes the HTTP/WebSocket server.
type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host" json:"host"`
	Port        int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		ModelsDir: engine.DefaultModelsDir(),
		LogLevel:  "info",
		Pipeline: PipelineConfig{
			FastMode:       true,
			MaxSide:        0,
			BeamWidth:      10,
			RecBonusPct:    45,
			Allowlist:      engine.DefaultAllowlist,
			MinROIContrast: 25,
		},
		Engine: EngineConfig{
			Backend:     "auto",
			ImageHeight: 48,
			MaxDetSide:  960,
		},
		Server: ServerConfig{
			Host:        "localhost",
			Port:        8080,
			MaxUploadMB: 16,
			TimeoutSec:  60,
		},
	}
}

// EffectiveMaxSide resolves the frame-side cap, applying the fast-mode
// dependent default and the [480,1920] clamp.
func (p *PipelineConfig) EffectiveMaxSide() int {
	side := p.MaxSide
	if side == 0 {
		side = 1280
		if p.FastMode {
			side = 1120
		}
	}
	return clampInt(side, minMaxSide, maxMaxSide)
}

// Validate clamps numeric settings into their ranges and rejects the
// settings that have no sensible clamp.
func (c *Config) Validate() error {
	if c.Pipeline.MaxSide != 0 {
		c.Pipeline.MaxSide = clampInt(c.Pipeline.MaxSide, minMaxSide, maxMaxSide)
	}
	c.Pipeline.BeamWidth = clampInt(c.Pipeline.BeamWidth, 1, 30)
	c.Pipeline.RecBonusPct = clampInt(c.Pipeline.RecBonusPct, 0, 300)
	if c.Pipeline.MinROIContrast < 0 {
		c.Pipeline.MinROIContrast = 0
	}
	if c.Pipeline.MinROIContrast > 255 {
		c.Pipeline.MinROIContrast = 255
	}
	if c.Pipeline.Allowlist == "" {
		return fmt.Errorf("pipeline.allowlist must not be empty")
	}
	switch c.Engine.Backend {
	case "auto", "cpu", "gpu", "cuda":
	default:
		return fmt.Errorf("engine.backend must be auto, cpu, gpu or cuda, got %q", c.Engine.Backend)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EngineSettings builds the engine construction config.
func (c *Config) EngineSettings() engine.Config {
	return engine.Config{
		ModelsDir:   c.ModelsDir,
		Backend:     c.Engine.Backend,
		ForceGPU:    c.Engine.ForceGPU,
		NumThreads:  c.Engine.NumThreads,
		ImageHeight: c.Engine.ImageHeight,
		MaxDetSide:  c.Engine.MaxDetSide,
	}
}

// NewPipeline builds a frame pipeline from this configuration. The
// engine may be nil when it is constructed lazily by the caller.
func (c *Config) NewPipeline(eng engine.Engine) *frame.Pipeline {
	p := frame.New(eng)
	p.Allowlist = c.Pipeline.Allowlist
	p.BeamWidth = c.Pipeline.BeamWidth
	p.RecBonus = float64(c.Pipeline.RecBonusPct) / 100.0
	p.FastMode = c.Pipeline.FastMode
	p.MaxSide = c.Pipeline.EffectiveMaxSide()
	p.MinROIContrast = c.Pipeline.MinROIContrast
	if c.Debug {
		p.DebugDir = "vaultlens-debug"
	}
	return p
}
