package main

import (
	"fmt"
	"os"

	"evalreport-go/internal/cli"
	"evalreport-go/internal/config"
	"evalreport-go/internal/logger"
	"evalreport-go/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries command output such as backups
	log := logger.NewWithOutput(os.Stderr)
	log.WithField("service", "evalreport-go").WithField("db_path", cfg.DBPath).Info("starting")

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	app := &cli.App{Config: cfg, Store: st, Log: log}
	return cli.NewRootCmd(app).Execute()
}
