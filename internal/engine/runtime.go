package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	onnxrt "github.com/yalue/onnxruntime_go"
)

func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

func systemLibraryPaths(useGPU bool) []string {
	if useGPU {
		return []string{
			"/opt/onnxruntime/gpu/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
		}
	}
	return []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
}

func trySetLibraryPath(path string) bool {
	if _, err := os.Stat(path); err == nil {
		onnxrt.SetSharedLibraryPath(path)
		return true
	}
	return false
}

// setRuntimeLibraryPath points onnxruntime_go at a usable shared library,
// trying VAULTLENS_ORT_LIB, the usual system locations, then a lib/
// directory beside the executable.
func setRuntimeLibraryPath(useGPU bool) error {
	if p := os.Getenv("VAULTLENS_ORT_LIB"); p != "" {
		if trySetLibraryPath(p) {
			return nil
		}
		return fmt.Errorf("VAULTLENS_ORT_LIB points at missing file: %s", p)
	}
	for _, p := range systemLibraryPaths(useGPU) {
		if trySetLibraryPath(p) {
			return nil
		}
	}
	libName, err := libraryName()
	if err != nil {
		return err
	}
	exe, err := os.Executable()
	if err == nil {
		local := filepath.Join(filepath.Dir(exe), "lib", libName)
		if trySetLibraryPath(local) {
			return nil
		}
	}
	return fmt.Errorf("ONNX Runtime library %s not found", libName)
}

func ensureRuntime(useGPU bool) error {
	if onnxrt.IsInitialized() {
		return nil
	}
	if err := setRuntimeLibraryPath(useGPU); err != nil {
		return fmt.Errorf("locate onnxruntime: %w", err)
	}
	if err := onnxrt.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// wantGPU resolves the execution provider from config. ForceGPU wins,
// then the backend string, then auto-probing (GPU library present).
func wantGPU(cfg Config) bool {
	if cfg.ForceGPU {
		return true
	}
	switch strings.ToLower(cfg.Backend) {
	case "gpu", "cuda":
		return true
	case "cpu":
		return false
	}
	// auto: use the GPU only when its library is installed
	if _, err := os.Stat("/opt/onnxruntime/gpu/lib/libonnxruntime.so"); err == nil {
		return true
	}
	return false
}

func newSessionOptions(useGPU bool, numThreads int) (*onnxrt.SessionOptions, error) {
	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if useGPU {
		cudaOpts, err := onnxrt.NewCUDAProviderOptions()
		if err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("create CUDA provider options: %w", err)
		}
		defer func() { _ = cudaOpts.Destroy() }()
		if err := cudaOpts.Update(map[string]string{"device_id": "0"}); err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("configure CUDA provider: %w", err)
		}
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("append CUDA provider: %w", err)
		}
	}
	if numThreads > 0 {
		if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("set thread count: %w", err)
		}
	}
	return opts, nil
}
