package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/stream"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Process a length-prefixed frame stream from stdin",
	Long: `Reads frame units from stdin, each a 4-byte little-endian length
followed by an encoded still image, and writes one result unit per
frame to stdout: a FINAL line when a token was found, then a blank
line. The recognition engine is initialized lazily on the first frame.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipeline := cfg.NewPipeline(nil)
		worker := &stream.Worker{
			In:       os.Stdin,
			Out:      os.Stdout,
			Pipeline: pipeline,
			NewEngine: func() (engine.Engine, error) {
				return engine.New(cfg.EngineSettings())
			},
		}
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(streamCmd)
}
