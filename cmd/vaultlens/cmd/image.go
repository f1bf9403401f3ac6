package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/server"
)

var imageFormat string

var imageCmd = &cobra.Command{
	Use:   "image [files...]",
	Short: "Extract the token from one or more still images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		eng, err := engine.New(cfg.EngineSettings())
		if err != nil {
			return fmt.Errorf("initialize recognition engine: %w", err)
		}
		defer func() { _ = eng.Close() }()

		pipeline := cfg.NewPipeline(eng)
		for _, path := range args {
			img, err := imaging.Open(path, imaging.AutoOrientation(true))
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				continue
			}
			res := pipeline.ProcessFrame(img)
			switch imageFormat {
			case "json":
				out := server.TokenResponse{
					Text:       res.Text,
					Confidence: res.Confidence,
					Clipped:    res.Clipped,
					Found:      res.Text != "",
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				if err := enc.Encode(out); err != nil {
					return err
				}
			default:
				if res.Text != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "FINAL\t%.4f\t%s\n", res.Confidence, res.Text)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
		}
		return nil
	},
}

func init() {
	imageCmd.Flags().StringVar(&imageFormat, "format", "text", "output format (text, json)")
	rootCmd.AddCommand(imageCmd)
}
