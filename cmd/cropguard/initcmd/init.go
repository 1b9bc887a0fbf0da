package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cozy-creator/cropguard/internal/config"
	"github.com/cozy-creator/cropguard/internal/templates"
	"github.com/cozy-creator/cropguard/internal/utils/pathutil"
)

var Cmd = &cobra.Command{
	Use:   "init",
	Short: "Create the home directory with example config.yaml and .env files",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	home := viper.GetString("home")
	if home == "" {
		home = config.DefaultHome
	}

	home, err := pathutil.ExpandPath(home)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrHomeExpandFailed, err)
	}

	if err := templates.CreateHomeDirs(home); err != nil {
		return err
	}

	created, err := templates.WriteHomeTemplates(home)
	if err != nil {
		return err
	}

	for _, path := range created {
		fmt.Fprintln(cmd.OutOrStdout(), "created", path)
	}
	if len(created) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to do, files already exist in", home)
	}
	return nil
}
