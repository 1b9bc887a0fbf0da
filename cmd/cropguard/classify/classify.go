package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/cmd/cropguard/flags"
	"github.com/cozy-creator/cropguard/internal/app"
	"github.com/cozy-creator/cropguard/internal/classifier"
	"github.com/cozy-creator/cropguard/internal/config"
)

var Cmd = &cobra.Command{
	Use:   "classify <image>...",
	Short: "Classify local image files with the configured model",
	Long:  "Runs the same pipeline as POST /predict on each file and prints one JSON result per line",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

type fileResult struct {
	File string `json:"file"`
	*classifier.PredictionResult
	Error string `json:"error,omitempty"`
}

func init() {
	fs := Cmd.Flags()
	fs.Int("workers", 4, "Number of concurrent inference workers")
	fs.Duration("inference-timeout", 0, "Per-image inference timeout (default 30s)")

	flags.AddModelFlags(fs)
	flags.AddS3Flags(fs)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := config.InitConfig(viper.GetViper())
	if err != nil {
		return err
	}

	app, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())

	var failed int
	for _, path := range args {
		out := fileResult{File: path}

		raw, err := os.ReadFile(path)
		if err == nil {
			out.PredictionResult, err = app.Classify(cmd.Context(), raw)
		}
		if err != nil {
			failed++
			out.Error = err.Error()
			app.Logger.Warn("Failed to classify file", zap.String("file", path), zap.Error(err))
		}

		if err := enc.Encode(out); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be classified", failed, len(args))
	}
	return nil
}
