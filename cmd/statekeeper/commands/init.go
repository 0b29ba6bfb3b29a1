package commands

import (
	"fmt"

	"git.home.luguber.info/inful/statekeeper/internal/config"
	"git.home.luguber.info/inful/statekeeper/internal/statefile"
)

// InitCmd implements the 'init' command.
type InitCmd struct{}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	cfg := config.Resolve(root.File, "", "")
	if err := statefile.New(cfg.StateFile).EnsureExists(); err != nil {
		return err
	}
	fmt.Printf("Desired state file ready at %s\n", cfg.StateFile)
	return nil
}
