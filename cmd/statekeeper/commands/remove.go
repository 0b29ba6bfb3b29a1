package commands

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
)

// RemoveCmd implements the 'remove' command.
type RemoveCmd struct {
	Name string `arg:"" help:"Service name"`
}

func (r *RemoveCmd) Run(_ *Global, root *CLI) error {
	store, _, err := openStore(root)
	if err != nil {
		return err
	}

	existed, err := store.Remove(r.Name)
	if err != nil {
		return err
	}
	if !existed {
		return ferrors.NotFoundError("service is not tracked").
			WithContext("service", r.Name).
			Build()
	}

	fmt.Printf("Removed %s\n", r.Name)
	return nil
}
