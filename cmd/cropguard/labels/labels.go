package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cozy-creator/cropguard/internal/config"
	"github.com/cozy-creator/cropguard/internal/labels"
)

var Cmd = &cobra.Command{
	Use:   "labels",
	Short: "Print the active label table and disease id mapping",
	Args:  cobra.NoArgs,
	RunE:  runLabels,
}

func init() {
	fs := Cmd.Flags()
	fs.String("labels-preset", labels.PresetPlantVillage15, "Built-in label set")
	fs.String("labels-file", "", "YAML or JSON label set, replaces the preset")
}

func runLabels(cmd *cobra.Command, _ []string) error {
	cfg, err := config.InitConfig(viper.GetViper())
	if err != nil {
		return err
	}

	set, err := labels.Load(cfg.Labels.Preset, cfg.Labels.File)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "label set: %s\n\n", set.Name)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tLABEL\tDISEASE ID\tHEALTHY")
	for i, name := range set.Table.Names() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", i, name, set.Mapping.Lookup(name), labels.IsHealthy(name))
	}
	return w.Flush()
}
