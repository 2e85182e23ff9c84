package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justyntemme/multipane/internal/store"
	"github.com/justyntemme/multipane/internal/transfer"
)

// newHistoryCommand creates the 'multipane history' command
func newHistoryCommand(a *app) *cobra.Command {
	var limit int
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished transfers",
		Long: `Show the transfer journal, most recent first.

Examples:
  multipane history --limit 5
  multipane history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, a, limit, clearAll)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transfers to show (0 for all)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete the recorded history")

	return cmd
}

func runHistory(cmd *cobra.Command, a *app, limit int, clearAll bool) error {
	output := cmd.OutOrStdout()

	db := store.NewDB()
	if err := db.Open(a.journalPath()); err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	if clearAll {
		if err := db.ClearHistory(); err != nil {
			return fmt.Errorf("clear journal: %w", err)
		}
		fmt.Fprintln(output, "Transfer history cleared.")
		return nil
	}

	recs, err := db.History(limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintln(output, "No transfers recorded.")
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	for _, rec := range recs {
		summary := transfer.Summary{
			Succeeded: rec.Succeeded,
			Skipped:   rec.Skipped,
			Blocked:   rec.Blocked,
			Failed:    rec.Failed,
		}
		cyan.Fprintf(output, "%s %s", rec.Op, phaseColor(rec.Phase).Sprint(rec.Phase))
		fmt.Fprintf(output, "  %s  %s, %s in %s\n",
			humanize.Time(rec.FinishedAt), summary.String(), humanize.IBytes(rec.Bytes), rec.Duration().Round(time.Millisecond))
		for _, src := range rec.Sources {
			fmt.Fprintf(output, "    %s\n", src)
		}
		fmt.Fprintf(output, "    -> %s\n", rec.DestDir)
		if rec.Message != "" && rec.Phase != transfer.Done.String() {
			fmt.Fprintf(output, "    %s\n", rec.Message)
		}
	}
	return nil
}

func phaseColor(phase string) *color.Color {
	switch phase {
	case transfer.Done.String():
		return color.New(color.FgGreen)
	case transfer.Cancelled.String():
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
