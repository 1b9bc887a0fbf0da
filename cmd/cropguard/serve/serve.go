package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/cmd/cropguard/flags"
	"github.com/cozy-creator/cropguard/internal/app"
	"github.com/cozy-creator/cropguard/internal/config"
	"github.com/cozy-creator/cropguard/internal/server"
)

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the model server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	fs := Cmd.Flags()

	fs.Int("port", 8000, "Port to run the server on")
	fs.String("host", "0.0.0.0", "Host to run the server on")
	fs.String("service-name", config.DefaultServiceName, "Name reported by GET /")
	fs.String("public-dir", "", "Directory of static frontend files served under /app")
	fs.Int("max-upload-mb", 10, "Largest accepted upload in MiB")
	fs.Int("workers", 4, "Number of concurrent inference workers")
	fs.Duration("inference-timeout", 0, "Per-request inference timeout (default 30s)")

	flags.AddModelFlags(fs)
	flags.AddS3Flags(fs)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.InitConfig(viper.GetViper())
	if err != nil {
		return err
	}

	app, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := server.NewServer(app)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		app.Logger.Info("Shutdown signal received")
	}

	if err := srv.Stop(context.Background()); err != nil {
		app.Logger.Error("Failed to stop server", zap.Error(err))
		return err
	}

	return <-errc
}
