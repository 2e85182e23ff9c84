package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justyntemme/multipane/internal/order"
	"github.com/justyntemme/multipane/internal/pane"
	"github.com/justyntemme/multipane/internal/search"
)

// newSearchCommand creates the 'multipane search' command
func newSearchCommand(a *app) *cobra.Command {
	var limit int
	var sortBy string
	var desc bool

	cmd := &cobra.Command{
		Use:   "search <pattern> [dir]",
		Short: "Find files by name below a directory",
		Long: `Search a directory tree for names matching one or more patterns.

Patterns are separated by spaces, commas or semicolons and are matched
against entry names as globs ('*', '?', '[...]', '{a,b}'), ignoring case.
An empty pattern matches everything.

Examples:
  multipane search "*.go *.mod" ~/src
  multipane search "report*" --limit 100`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 2 {
				dir = args[1]
			}
			return runSearch(cmd, a, args[0], dir, limit, sortBy, desc)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort column: name, size, type, modified (default: path)")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")

	return cmd
}

func runSearch(cmd *cobra.Command, a *app, pattern, dir string, limit int, sortBy string, desc bool) error {
	output := cmd.OutOrStdout()

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}

	cfg := a.config()
	p := a.newPane("search", nil, func(o *pane.Options) {
		if limit > 0 {
			o.Search = search.NewEngine(cfg.Search.BatchSize, limit)
		}
	})
	defer p.Close()

	p.BeginListing(root)
	h := p.BeginSearch(pattern)

	var searchErr error
	err = waitFor(p, 0, func(ev pane.Event) {
		if ev.Kind == pane.SearchError && ev.Gen == h.Gen {
			searchErr = ev.Err
		}
	}, func(ev pane.Event) bool {
		return ev.Kind == pane.SearchDone && ev.Gen == h.Gen
	})
	if err != nil {
		return err
	}
	if searchErr != nil {
		return searchErr
	}

	snap := p.Snapshot()
	results := snap.Search.Results
	if sortBy != "" {
		a.policy().SortResults(results, order.ParseColumn(sortBy), desc)
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			return filepath.Join(results[i].RelFolder, results[i].Name) < filepath.Join(results[j].RelFolder, results[j].Name)
		})
	}

	dirColor := color.New(color.FgBlue, color.Bold)
	for _, r := range results {
		rel := filepath.Join(r.RelFolder, r.Name)
		if r.IsDir {
			dirColor.Fprintln(output, rel+string(os.PathSeparator))
			continue
		}
		fmt.Fprintln(output, rel)
	}

	fmt.Fprintf(output, "\n%d matches for %q in %s\n", len(results), pattern, snap.Search.Root)
	if snap.Search.Truncated {
		color.New(color.FgYellow).Fprintf(output, "Results truncated at %d; narrow the pattern or raise --limit\n", len(results))
	}
	return nil
}
