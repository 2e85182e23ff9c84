package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justyntemme/multipane/internal/model"
	"github.com/justyntemme/multipane/internal/order"
	"github.com/justyntemme/multipane/internal/pane"
)

// attrTimeout bounds how long ls waits for attribute resolution.
const attrTimeout = 30 * time.Second

type listOptions struct {
	sortBy    string
	desc      bool
	all       bool
	noResolve bool
}

// newListCommand creates the 'multipane ls' command
func newListCommand(a *app) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory",
		Long: `List the direct children of a directory, directories first.

Examples:
  # List the current directory by name
  multipane ls

  # Largest files first
  multipane ls ~/Downloads --sort size --desc`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runList(cmd, a, dir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "Sort column: name, size, type, modified (default from config)")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "Show dotfiles")
	cmd.Flags().BoolVar(&opts.noResolve, "no-resolve", false, "Skip size and modification time lookup")

	return cmd
}

func runList(cmd *cobra.Command, a *app, dir string, opts listOptions) error {
	output := cmd.OutOrStdout()

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}

	p := a.newPane("ls", nil, nil)
	defer p.Close()

	h := p.BeginListing(root)
	var listErr error
	err = waitFor(p, 0, func(ev pane.Event) {
		if ev.Kind == pane.ListingError && ev.Gen == h.Gen {
			listErr = ev.Err
		}
	}, func(ev pane.Event) bool {
		return ev.Gen == h.Gen && (ev.Kind == pane.ListingDone || ev.Kind == pane.ListingError)
	})
	if err != nil {
		return err
	}
	if listErr != nil {
		return listErr
	}

	snap := p.Snapshot()
	if !opts.noResolve && len(snap.Entries) > 0 {
		last := len(snap.Entries) - 1
		want := p.RequestVisible(0, last)
		got := 0
		if want > 0 {
			err := waitFor(p, attrTimeout, func(ev pane.Event) {
				if ev.Gen != h.Gen {
					return
				}
				switch ev.Kind {
				case pane.AttributeResolved:
					got++
				case pane.DirectoryChanged:
					// The watcher dropped the cache; ask again.
					want, got = p.RequestVisible(0, last), 0
				}
			}, func(pane.Event) bool { return got >= want })
			if err != nil {
				return fmt.Errorf("resolve attributes: %w", err)
			}
		}
		snap = p.Snapshot()
	}

	cfg := a.config()
	column := order.ParseColumn(cfg.Sort.Column)
	if opts.sortBy != "" {
		column = order.ParseColumn(opts.sortBy)
	}
	desc := cfg.Sort.Descending || opts.desc

	entries := snap.Entries[:0]
	for _, e := range snap.Entries {
		if opts.all || !strings.HasPrefix(e.Name, ".") {
			entries = append(entries, e)
		}
	}
	a.policy().Sort(entries, column, desc)

	printEntries(output, entries)
	fmt.Fprintf(output, "\n%d items in %s\n", len(entries), snap.Root)
	return nil
}

func printEntries(w io.Writer, entries []model.Entry) {
	dirColor := color.New(color.FgBlue, color.Bold)
	linkColor := color.New(color.FgCyan)

	for _, e := range entries {
		size := e.DisplaySize()
		switch {
		case e.IsDir:
			size = "-"
		case size == "":
			size = "?"
		}
		modified := ""
		if e.ModTime != nil {
			modified = e.ModTime.Local().Format("2006-01-02 15:04")
		}

		fmt.Fprintf(w, "%-12s %10s  %-16s  ", e.TypeLabel, size, modified)
		switch {
		case e.IsSymlink:
			linkColor.Fprintln(w, e.Name)
		case e.IsDir:
			dirColor.Fprintln(w, e.Name+string(os.PathSeparator))
		default:
			fmt.Fprintln(w, e.Name)
		}
	}
}
