package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"planhub/config"
	logs "planhub/internal/infra/log"
	"planhub/internal/infra/persistence/sqlstore"
	"planhub/internal/migrations"

	"github.com/pkg/errors"
)

// Supported subcommands:
// - up:      Apply every pending migration
// - down:    Roll back the last -steps migrations
// - version: Print the applied version

func main() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := fs.String("dir", "./migrations", "Directory holding the mysql/ and postgres/ migration sets")
	steps := fs.Int("steps", 1, "Number of migrations to roll back (down only)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	if err := run(command, *dir, *steps); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %+v\n", command, err)
		os.Exit(1)
	}
}

func run(command, dir string, steps int) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	logger, err := logs.NewWithWriter(cfg, os.Stderr)
	if err != nil {
		return err
	}

	// Migrations always target the primary; replicas are not used here.
	cfg.Database.Replicas = nil
	db, err := sqlstore.Open(cfg, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}

	driver, err := config.Driver(cfg.ActiveDatabase().URI)
	if err != nil {
		return err
	}

	runner, err := migrations.NewRunner(sqlDB, driver, dir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Warn("Failed to close migration runner", slog.Any("error", err))
		}
	}()

	switch command {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down(steps)
	case "version":
		version, dirty, ok, err := runner.Version()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no migrations applied")

			return nil
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)

		return nil
	default:
		printUsage()

		return errors.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: migrate <up|down|version> [-dir ./migrations] [-steps n]")
}
