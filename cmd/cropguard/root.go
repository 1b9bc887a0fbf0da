package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Subcommands
	classify "github.com/cozy-creator/cropguard/cmd/cropguard/classify"
	fetchModel "github.com/cozy-creator/cropguard/cmd/cropguard/fetchmodel"
	initHome "github.com/cozy-creator/cropguard/cmd/cropguard/initcmd"
	labels "github.com/cozy-creator/cropguard/cmd/cropguard/labels"
	serve "github.com/cozy-creator/cropguard/cmd/cropguard/serve"
	"github.com/cozy-creator/cropguard/internal/config"
)

var Cmd = &cobra.Command{
	Use:   "cropguard",
	Short: "CropGuard plant disease model server",
	Long:  "Serves a plant disease image classifier over HTTP and runs it from the command line",

	SilenceUsage: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		config.BindEnv(v)

		// Bind the flags of the command being run, including the ones it
		// inherits from this root command
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}

		return config.BindFlags(v, cmd.InheritedFlags())
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("home", config.DefaultHome, "Path to the cropguard home directory")
	pflags.String("config-file", "", "Path to the config file (default <home>/config.yaml)")
	pflags.String("environment", "dev", "Environment: dev, test or prod")
	pflags.String("log-level", "", "Log level: debug, info, warn or error")

	Cmd.AddCommand(serve.Cmd, classify.Cmd, fetchModel.Cmd, labels.Cmd, initHome.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
