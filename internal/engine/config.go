package engine

import (
	"os"
	"path/filepath"
)

const (
	detectionModelFile   = "PP-OCRv5_mobile_det.onnx"
	recognitionModelFile = "PP-OCRv5_mobile_rec.onnx"
	dictionaryFile       = "ppocr_keys_v1.txt"
)

// Config holds the settings needed to construct the recognition engine.
type Config struct {
	ModelsDir   string // directory containing ONNX models and the dictionary
	Backend     string // "auto", "cpu", "gpu" or "cuda"
	ForceGPU    bool   // require the GPU provider, fail instead of falling back
	NumThreads  int    // intra-op CPU threads (0 for runtime default)
	ImageHeight int    // recognition input height (0 adopts the model's)
	MaxDetSide  int    // detection input cap, longest side
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		ModelsDir:   DefaultModelsDir(),
		Backend:     "auto",
		ImageHeight: 48,
		MaxDetSide:  960,
	}
}

// DefaultModelsDir resolves the models directory: explicit override via
// environment, otherwise ~/.vaultlens/models.
func DefaultModelsDir() string {
	if dir := os.Getenv("VAULTLENS_MODELS_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".vaultlens", "models")
}

func (c Config) detectionModelPath() string {
	return filepath.Join(c.ModelsDir, detectionModelFile)
}

func (c Config) recognitionModelPath() string {
	return filepath.Join(c.ModelsDir, recognitionModelFile)
}

func (c Config) dictionaryPath() string {
	return filepath.Join(c.ModelsDir, dictionaryFile)
}
