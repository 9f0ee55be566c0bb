package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	prism "github.com/putto11262002/prism/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var envFiles []string

	flagSet := pflag.NewFlagSet("prism", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to the config file (default: ./config.yaml if present)")
	flagSet.StringSliceVar(&envFiles, "env-file", nil, "env files to load (default: .env)")
	flagSet.Int("port", 8080, "port to listen on")
	flagSet.String("hostname", "127.0.0.1", "hostname to listen on")
	flagSet.String("mode", "dev", "dev or prod")
	flagSet.String("log-level", "info", "debug, info, warn or error")
	flagSet.String("store", "sqlite", "where preferences are kept: memory or sqlite")
	flagSet.String("db", "./prism.db", "path to the SQLite database file")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	loader := &prism.FileConfigLoader{Path: configPath, Flags: flagSet, EnvFiles: envFiles}
	config, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%s", prism.FormatValidationErrors(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	app, err := prism.New(ctx, config)
	if err != nil {
		return err
	}
	return app.Start()
}
