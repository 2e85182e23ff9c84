package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/multipane/internal/fs"
)

// newRootsCommand creates the 'multipane roots' command
func newRootsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roots",
		Short: "List mounted volumes to browse from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := cmd.OutOrStdout()
			for _, r := range fs.ListRoots() {
				fmt.Fprintf(output, "%-24s %s\n", r.Label, r.Path)
			}
			return nil
		},
	}
}
