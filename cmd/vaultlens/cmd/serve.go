package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultlens/vaultlens/internal/config"
	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve frame recognition over HTTP and WebSocket",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()

		eng, err := engine.New(cfg.EngineSettings())
		if err != nil {
			return fmt.Errorf("initialize recognition engine: %w", err)
		}
		defer func() { _ = eng.Close() }()

		pipeline := cfg.NewPipeline(eng)
		srv := server.New(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			MaxUploadMB: cfg.Server.MaxUploadMB,
			TimeoutSec:  cfg.Server.TimeoutSec,
		}, pipeline, nil)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Start(ctx)
	},
}

func init() {
	defaults := config.DefaultConfig()
	serveCmd.Flags().String("host", defaults.Server.Host, "host interface to bind")
	serveCmd.Flags().Int("port", defaults.Server.Port, "port to listen on")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}
