// Package commands defines the statekeeper CLI commands.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/statekeeper/internal/config"
	"git.home.luguber.info/inful/statekeeper/internal/state"
	"git.home.luguber.info/inful/statekeeper/internal/statefile"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	File    string           `short:"f" help:"Desired state file path (overrides STATEKEEPER_STATE_FILE)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	List    ListCmd    `cmd:"" help:"List tracked services and their version requirements"`
	Set     SetCmd     `cmd:"" help:"Create or update a service version requirement"`
	Remove  RemoveCmd  `cmd:"" help:"Remove a service from the desired state"`
	Init    InitCmd    `cmd:"" help:"Create the desired state file template if it does not exist"`
	Serve   ServeCmd   `cmd:"" help:"Run the statekeeper daemon (file watcher + HTTP API)"`
	History HistoryCmd `cmd:"" help:"Show recent state transitions from the history log"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// openStore builds a store for one-shot commands. No event hub or metrics:
// a single mutation or read does not need fan-out.
func openStore(root *CLI) (*state.Store, *config.Config, error) {
	cfg := config.Resolve(root.File, "", "")
	store, err := state.NewStore(statefile.New(cfg.StateFile), nil, nil)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
