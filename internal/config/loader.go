package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files.
	ConfigFileName = "vaultlens"

	// EnvPrefix is the prefix for environment variables, so
	// VAULTLENS_PIPELINE_BEAM_WIDTH maps to pipeline.beam_width.
	EnvPrefix = "VAULTLENS"
)

// Loader merges configuration from files, environment and defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra
// flag bindings take part in precedence.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads configuration from the search paths and environment.
// A missing config file is fine; a malformed one is not.
func (l *Loader) Load() (*Config, error) {
	return l.load("")
}

// LoadWithFile reads configuration from an explicit file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}
	return l.load(configFile)
}

func (l *Loader) load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// GetViper exposes the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/vaultlens")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "vaultlens"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "vaultlens"))
	}
}

func (l *Loader) setupEnvironment() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("models_dir", defaults.ModelsDir)
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)
	l.v.SetDefault("debug", defaults.Debug)

	l.v.SetDefault("pipeline.fast_mode", defaults.Pipeline.FastMode)
	l.v.SetDefault("pipeline.max_side", defaults.Pipeline.MaxSide)
	l.v.SetDefault("pipeline.beam_width", defaults.Pipeline.BeamWidth)
	l.v.SetDefault("pipeline.rec_bonus_pct", defaults.Pipeline.RecBonusPct)
	l.v.SetDefault("pipeline.allowlist", defaults.Pipeline.Allowlist)
	l.v.SetDefault("pipeline.min_roi_contrast", defaults.Pipeline.MinROIContrast)

	l.v.SetDefault("engine.backend", defaults.Engine.Backend)
	l.v.SetDefault("engine.force_gpu", defaults.Engine.ForceGPU)
	l.v.SetDefault("engine.num_threads", defaults.Engine.NumThreads)
	l.v.SetDefault("engine.image_height", defaults.Engine.ImageHeight)
	l.v.SetDefault("engine.max_det_side", defaults.Engine.MaxDetSide)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
}
