package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justyntemme/multipane/internal/pane"
	"github.com/justyntemme/multipane/internal/transfer"
)

// newTransferCommand creates the 'multipane cp' or 'multipane mv' command
func newTransferCommand(a *app, op transfer.Op) *cobra.Command {
	var onConflict string
	var quiet bool

	use, short, verb := "cp", "Copy files and directories into a directory", "Copy"
	if op == transfer.Move {
		use, short, verb = "mv", "Move files and directories into a directory", "Move"
	}

	cmd := &cobra.Command{
		Use:   use + " <source>... <dest-dir>",
		Short: short,
		Long: fmt.Sprintf(`%s one or more sources into an existing directory.

When a destination already exists, --on-conflict decides what happens:
  merge      overwrite files, merge directories (default)
  overwrite  replace the existing file or directory
  skip       leave the destination alone
  keepboth   write next to it as "name - Copy"

Press Ctrl+C to cancel; finished items are kept.`, verb),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, a, op, args[:len(args)-1], args[len(args)-1], onConflict, quiet)
		},
	}

	cmd.Flags().StringVar(&onConflict, "on-conflict", "merge", "Conflict resolution: merge, overwrite, skip, keepboth")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the outcome")

	return cmd
}

func runTransfer(cmd *cobra.Command, a *app, op transfer.Op, sources []string, dest, onConflict string, quiet bool) error {
	output := cmd.OutOrStdout()

	resolution, err := transfer.ParseResolution(onConflict)
	if err != nil {
		return err
	}

	destDir, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dest, err)
	}
	info, err := os.Stat(destDir)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination %s is not a directory", destDir)
	}

	req := transfer.Request{Op: op, DestDir: destDir, Conflicts: make(map[string]transfer.Resolution)}
	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", src, err)
		}
		req.Sources = append(req.Sources, abs)
		req.Conflicts[abs] = resolution
	}

	manager, closeJournal := a.newManager()
	defer closeJournal()
	defer manager.Shutdown()

	p := a.newPane("cli", manager, nil)
	defer p.Close()
	p.BeginListing(destDir)

	h, err := p.SubmitTransfer(req)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		p.Cancel(h)
	}()

	progressColor := color.New(color.Faint)
	lastPct := -1
	var outcome *transfer.Outcome
	err = waitFor(p, 0, func(ev pane.Event) {
		if ev.TransferID != h.TransferID {
			return
		}
		switch ev.Kind {
		case pane.TransferProgress:
			if quiet {
				return
			}
			prog := ev.Progress
			if prog.Message != "" {
				progressColor.Fprintf(output, "%3d%%  %s\n", prog.Percent, prog.Message)
				lastPct = prog.Percent
			} else if prog.Percent >= lastPct+10 && !prog.Phase.Terminal() {
				progressColor.Fprintf(output, "%3d%%\n", prog.Percent)
				lastPct = prog.Percent
			}
		case pane.TransferOutcome:
			outcome = ev.Outcome
		}
	}, func(ev pane.Event) bool {
		return ev.Kind == pane.TransferOutcome && ev.TransferID == h.TransferID
	})
	if err != nil {
		return err
	}

	return reportOutcome(output, op, outcome)
}

func reportOutcome(w io.Writer, op transfer.Op, out *transfer.Outcome) error {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	s := out.Summary
	for _, warn := range s.Warnings {
		yellow.Fprintf(w, "Warning: %v\n", warn)
	}

	switch out.Phase {
	case transfer.Done:
		green.Fprintf(w, "%s finished: %s, %s\n", op, s.String(), humanize.IBytes(s.Bytes))
		return nil
	case transfer.Cancelled:
		yellow.Fprintf(w, "%s (%s so far)\n", transfer.CancelledMessage, s.String())
		return errors.New(transfer.CancelledMessage)
	default:
		red.Fprintf(w, "%s failed: %s\n", op, out.Message)
		if out.Err != nil {
			return out.Err
		}
		return errors.New(out.Message)
	}
}
