package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultlens/vaultlens/internal/config"
	"github.com/vaultlens/vaultlens/internal/version"
)

var (
	configLoader *config.Loader
	globalConfig *config.Config
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "vaultlens",
	Short: "Extract password tokens from phone-screen video frames",
	Long: `vaultlens reads video frames showing a phone screen and extracts the
short password-like token rendered on it, surviving glare, tilt,
bright-on-dark themes and webcam noise.

Frames are processed one at a time: the screen is located and
unwarped, candidate text regions are proposed, several conditioned
renderings of each region are recognized, and the noisy outputs are
reconciled into one consensus token.

Examples:
  vaultlens stream < frames.bin
  vaultlens image capture.png
  vaultlens serve --port 8080`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			ver, commit, date := version.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "vaultlens %s (commit: %s, built: %s)\n", ver, commit, date)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/vaultlens, /etc/vaultlens)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	defaults := config.DefaultConfig()
	rootCmd.PersistentFlags().String("models-dir", defaults.ModelsDir,
		"directory containing ONNX models (can also be set via VAULTLENS_MODELS_DIR)")
	rootCmd.PersistentFlags().String("backend", defaults.Engine.Backend, "compute backend (auto, cpu, gpu)")
	rootCmd.PersistentFlags().Bool("force-gpu", false, "require the GPU backend, fail instead of falling back")
	rootCmd.PersistentFlags().Bool("fast", defaults.Pipeline.FastMode, "fast mode: fewer passes and ROIs per frame")
	rootCmd.PersistentFlags().Int("max-side", defaults.Pipeline.MaxSide, "cap on the frame's longest side before processing (0 picks 1120 in fast mode, 1280 otherwise)")
	rootCmd.PersistentFlags().Int("beam-width", defaults.Pipeline.BeamWidth, "CTC beam width for recognition decoding")
	rootCmd.PersistentFlags().String("allowlist", defaults.Pipeline.Allowlist, "override the token character allowlist")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("models_dir", rootCmd.PersistentFlags().Lookup("models-dir"))
	_ = viper.BindPFlag("engine.backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("engine.force_gpu", rootCmd.PersistentFlags().Lookup("force-gpu"))
	_ = viper.BindPFlag("pipeline.fast_mode", rootCmd.PersistentFlags().Lookup("fast"))
	_ = viper.BindPFlag("pipeline.max_side", rootCmd.PersistentFlags().Lookup("max-side"))
	_ = viper.BindPFlag("pipeline.beam_width", rootCmd.PersistentFlags().Lookup("beam-width"))
	_ = viper.BindPFlag("pipeline.allowlist", rootCmd.PersistentFlags().Lookup("allowlist"))

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if globalConfig == nil {
			initConfig()
		}

		var level slog.Level
		if globalConfig.Verbose {
			level = slog.LevelDebug
		} else {
			switch globalConfig.LogLevel {
			case "debug":
				level = slog.LevelDebug
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			default:
				level = slog.LevelInfo
			}
		}

		// Logs go to stderr; stdout belongs to the frame protocol.
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	}
}

func initConfig() {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration including flag values.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}
	var cfg config.Config
	if err := configLoader.GetViper().Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling updated configuration: %v\n", err)
		return globalConfig
	}
	return &cfg
}
