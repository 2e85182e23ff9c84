package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justyntemme/multipane/internal/config"
)

// newConfigCommand creates the 'multipane config' command group
func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or reset the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration and journal paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := cmd.OutOrStdout()
			fmt.Fprintf(output, "config:  %s\n", a.configFile())
			fmt.Fprintf(output, "journal: %s\n", a.journalPath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a fresh default configuration, backing up the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := cmd.OutOrStdout()
			path := a.configFile()
			backup, err := config.GenerateConfig(path)
			if err != nil {
				return err
			}
			if backup != "" {
				fmt.Fprintf(output, "Backed up previous config to %s\n", backup)
			}
			color.New(color.FgGreen).Fprintf(output, "Wrote default config to %s\n", path)
			return nil
		},
	})

	return cmd
}
