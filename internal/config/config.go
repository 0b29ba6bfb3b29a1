// Package config resolves statekeeper runtime settings from flags,
// environment variables, and optional .env files.
package config

import (
	"os"
)

// Environment variable names recognized by every command.
const (
	EnvStateFile = "STATEKEEPER_STATE_FILE"
	EnvListen    = "STATEKEEPER_LISTEN"
	EnvHistoryDB = "STATEKEEPER_HISTORY_DB"
)

// Defaults applied when neither flag nor environment provide a value.
const (
	DefaultStateFile = "desired_state.yml"
	DefaultListen    = ":8080"
)

// Config holds the resolved runtime settings.
type Config struct {
	// StateFile is the path to the desired state YAML document.
	StateFile string
	// Listen is the HTTP listen address used by the serve command.
	Listen string
	// HistoryDB is the sqlite transition log path; empty disables the log.
	HistoryDB string
}

// Resolve builds a Config from explicit flag values. Precedence per setting:
// flag > environment > default. Flag values equal to "" are treated as unset.
func Resolve(flagStateFile, flagListen, flagHistoryDB string) *Config {
	return &Config{
		StateFile: firstNonEmpty(flagStateFile, os.Getenv(EnvStateFile), DefaultStateFile),
		Listen:    firstNonEmpty(flagListen, os.Getenv(EnvListen), DefaultListen),
		HistoryDB: firstNonEmpty(flagHistoryDB, os.Getenv(EnvHistoryDB)),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
