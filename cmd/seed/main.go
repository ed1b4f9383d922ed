package main

import (
	"os"

	"notesapi/internal/config"
	"notesapi/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		os.Exit(1)
	}
}
