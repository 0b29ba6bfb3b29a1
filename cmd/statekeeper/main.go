package main

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/statekeeper/cmd/statekeeper/commands"
	"git.home.luguber.info/inful/statekeeper/internal/config"
	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/version"
)

func main() {
	// .env files are a development convenience; absence is not an error.
	config.LoadEnvFiles()

	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("statekeeper"),
		kong.Description("Tracks desired service versions in a YAML state file and keeps subscribers informed of changes."),
		kong.Vars{"version": fmt.Sprintf("statekeeper %s (%s, built %s)", version.Version, version.GitCommit, version.BuildTime)},
		kong.UsageOnError(),
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := ctx.Run(global, &cli); err != nil {
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.HandleError(err)
	}
}
