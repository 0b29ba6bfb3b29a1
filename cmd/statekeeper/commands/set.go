package commands

import (
	"fmt"
)

// SetCmd implements the 'set' command.
type SetCmd struct {
	Name        string `arg:"" help:"Service name"`
	Requirement string `arg:"" help:"Semantic version requirement, e.g. '^1.2.3' or '>0.1.0'"`
}

func (s *SetCmd) Run(_ *Global, root *CLI) error {
	store, cfg, err := openStore(root)
	if err != nil {
		return err
	}

	svc, err := store.Set(s.Name, s.Requirement)
	if err != nil {
		return err
	}

	fmt.Printf("Tracking %s %s (%s)\n", svc.Name, svc.RequirementString(), cfg.StateFile)
	return nil
}
