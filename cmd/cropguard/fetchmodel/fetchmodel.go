package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cozy-creator/cropguard/cmd/cropguard/flags"
	"github.com/cozy-creator/cropguard/internal/app"
	"github.com/cozy-creator/cropguard/internal/config"
	"github.com/cozy-creator/cropguard/pkg/logger"
)

var Cmd = &cobra.Command{
	Use:   "fetch-model",
	Short: "Download the configured model artifact into the models directory",
	Args:  cobra.NoArgs,
	RunE:  runFetchModel,
}

func init() {
	fs := Cmd.Flags()
	fs.String("model-source", "", "Model artifact: local path, file:<path>, s3://bucket/key or http(s) URL")
	fs.String("model-checksum", "", "Expected blake3 hex digest of the model artifact")
	flags.AddS3Flags(fs)
}

func runFetchModel(cmd *cobra.Command, _ []string) error {
	cfg, err := config.InitConfig(viper.GetViper())
	if err != nil {
		return err
	}

	l, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer l.Sync()

	store, err := app.NewModelStore(cmd.Context(), cfg, l, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	path, err := store.Resolve(cmd.Context(), cfg.Model.Source, cfg.Model.Checksum)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
