package commands

import (
	"fmt"
)

// ListCmd implements the 'list' command.
type ListCmd struct{}

func (l *ListCmd) Run(_ *Global, root *CLI) error {
	store, _, err := openStore(root)
	if err != nil {
		return err
	}

	services := store.List()
	if len(services) == 0 {
		fmt.Println("No services tracked")
		return nil
	}
	for _, svc := range services {
		fmt.Printf("%s %s\n", svc.Name, svc.RequirementString())
	}
	return nil
}
