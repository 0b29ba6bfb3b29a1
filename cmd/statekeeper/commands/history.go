package commands

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/statekeeper/internal/config"
	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit     int    `short:"n" help:"Maximum number of transitions to show" default:"20"`
	HistoryDB string `name:"history-db" help:"Sqlite history database path (overrides STATEKEEPER_HISTORY_DB)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg := config.Resolve(root.File, "", h.HistoryDB)
	if cfg.HistoryDB == "" {
		return ferrors.ConfigError("no history database configured").
			WithContext("env", config.EnvHistoryDB).
			Build()
	}

	log, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	transitions, err := log.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	if len(transitions) == 0 {
		fmt.Println("No transitions recorded")
		return nil
	}

	for _, tr := range transitions {
		entries := make([]string, len(tr.Services))
		for i, svc := range tr.Services {
			entries[i] = fmt.Sprintf("%s %s", svc.Name, svc.Version)
		}
		summary := strings.Join(entries, ", ")
		if summary == "" {
			summary = "(empty)"
		}
		fmt.Printf("%s  %s  %s\n", tr.OccurredAt.Format("2006-01-02 15:04:05"), tr.ID, summary)
	}
	return nil
}
