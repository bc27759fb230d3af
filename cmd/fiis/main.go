// Command fiis manages the tracked portfolio and runs fetches, summaries and
// backups from the terminal against the same data directory as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"github.com/aristath/fiis/internal/cli"
	"github.com/aristath/fiis/internal/config"
	"github.com/aristath/fiis/internal/di"
	"github.com/aristath/fiis/pkg/logger"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cli.Register(commander, &cli.App{
		Open:   open,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

// open loads configuration and wires the container. Commands only log
// warnings unless LOG_LEVEL asks for more.
func open() (*di.Container, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := "warn"
	if _, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = cfg.LogLevel
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	})

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return container, container.Close, nil
}
