package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// envFiles are attempted in order; the first one that loads wins.
var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads environment variables from .env/.env.local if present.
// Existing process environment variables are never overwritten (godotenv.Load
// semantics). A missing file is not an error.
func LoadEnvFiles() {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			slog.Debug("Loaded environment variables", "env_file", path)
			return
		}
	}
}
