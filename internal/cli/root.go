// Package cli is the headless front end: each command drives one pane of
// the engine from a terminal.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/justyntemme/multipane/internal/config"
	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/logging"
	"github.com/justyntemme/multipane/internal/order"
	"github.com/justyntemme/multipane/internal/pane"
	"github.com/justyntemme/multipane/internal/resolver"
	"github.com/justyntemme/multipane/internal/search"
	"github.com/justyntemme/multipane/internal/store"
	"github.com/justyntemme/multipane/internal/transfer"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// app carries the global flags and the loaded configuration to subcommands.
type app struct {
	configPath string
	debug      bool
	noColor    bool

	cfg *config.Manager
}

// NewRootCommand creates and returns the root cobra command for multipane
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "multipane",
		Short: "Asynchronous file browsing and transfer engine",
		Long: `multipane lists directories, resolves file attributes lazily,
searches trees by glob pattern and copies or moves files with conflict
resolution and progress reporting.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config.json (default ~/.config/multipane/config.json)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable verbose debug logging")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newSearchCommand(a))
	cmd.AddCommand(newTransferCommand(a, transfer.Copy))
	cmd.AddCommand(newTransferCommand(a, transfer.Move))
	cmd.AddCommand(newHistoryCommand(a))
	cmd.AddCommand(newRootsCommand(a))
	cmd.AddCommand(newConfigCommand(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	a.cfg = config.NewManagerAt(path)
	loadErr := a.cfg.Load()

	cfg := a.cfg.Get()
	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if a.debug || debug.Enabled {
		logging.SetLevel("debug")
	}
	if loadErr != nil {
		logging.Warn("config unavailable, using defaults", logging.String("path", path), logging.Err(loadErr))
	}
	if err := a.cfg.ParseError(); err != nil {
		logging.Warn("config has errors, using defaults", logging.String("path", path), logging.Err(err))
	}

	if a.noColor || !isTerminal(cmd.OutOrStdout()) {
		color.NoColor = true
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// config returns the loaded configuration, or the defaults when setup did
// not run (commands built directly in tests).
func (a *app) config() config.Config {
	if a.cfg == nil {
		return *config.DefaultConfig()
	}
	return a.cfg.Get()
}

func (a *app) configFile() string {
	if a.cfg == nil {
		return config.ConfigPath()
	}
	return a.cfg.Path()
}

func (a *app) journalPath() string {
	if a.cfg == nil {
		return config.NewManager().JournalPath()
	}
	return a.cfg.JournalPath()
}

func (a *app) policy() *order.Policy {
	return order.NewPolicy(a.config().Sort.Locale)
}

// newPane builds a pane wired from the configuration. tweak, when non-nil,
// adjusts the options before the pane is created.
func (a *app) newPane(name string, transfers *transfer.Manager, tweak func(*pane.Options)) *pane.Pane {
	cfg := a.config()
	opts := pane.Options{
		Name:      name,
		ListBatch: cfg.Listing.BatchSize,
		Resolver: resolver.Options{
			BatchSize: cfg.Resolver.BatchSize,
			StopWait:  cfg.Resolver.StopWait(),
		},
		ViewportMargin: cfg.Resolver.ViewportMargin,
		Search:         search.NewEngine(cfg.Search.BatchSize, cfg.Search.ResultLimit),
		Transfers:      transfers,
		Watch:          cfg.Watch.Enabled,
		WatchDebounce:  cfg.Watch.Debounce(),
		StopWait:       cfg.Resolver.StopWait(),
	}
	if tweak != nil {
		tweak(&opts)
	}
	return pane.New(opts)
}

// newManager builds a transfer manager, journaling to the store when enabled.
// The returned close func releases the journal.
func (a *app) newManager() (*transfer.Manager, func()) {
	cfg := a.config()
	engine := transfer.NewEngine(transfer.Options{
		ScanFileLimit:    cfg.Transfer.ScanFileLimit,
		ScanTimeLimit:    cfg.Transfer.ScanTimeLimit(),
		ProgressInterval: cfg.Transfer.ProgressInterval(),
		BufferSize:       cfg.Transfer.CopyBufferSize,
	})
	if !cfg.Journal.Enabled {
		return transfer.NewManager(engine, nil), func() {}
	}

	db := store.NewDB()
	if err := db.Open(a.journalPath()); err != nil {
		logging.Warn("journal unavailable", logging.String("path", a.journalPath()), logging.Err(err))
		return transfer.NewManager(engine, nil), func() {}
	}
	return transfer.NewManager(engine, db), db.Close
}

// waitFor drains p's events until stop matches one, or timeout passes.
// handle is called for every event.
func waitFor(p *pane.Pane, timeout time.Duration, handle func(pane.Event), stop func(pane.Event) bool) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				return fmt.Errorf("pane closed")
			}
			if handle != nil {
				handle(ev)
			}
			if stop(ev) {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("timed out after %v", timeout)
		}
	}
}
