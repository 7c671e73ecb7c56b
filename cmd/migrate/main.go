package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"dholratri-tickets/internal/config"
	"dholratri-tickets/internal/database"
	"dholratri-tickets/internal/database/migrations"
	"dholratri-tickets/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	action := flag.String("action", "up", "migration action: up, down, to or version")
	target := flag.Uint("version", 0, "target version for -action=to")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger := logger.NewLogger(cfg.LogDir)
	defer logger.Close()

	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "DATABASE_DSN not set")
	}
	if cfg.Database.Driver != "postgres" {
		logger.Fatal("CONFIG", fmt.Sprintf("migrations only run against postgres, DB_DRIVER is %q", cfg.Database.Driver))
	}

	bunDB, err := database.Open(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}

	runner := migrations.NewRunner(bunDB, logger)
	if err := runner.Initialize(); err != nil {
		logger.Fatal("MIGRATE", err.Error())
	}

	if err := run(runner, *action, *target, logger); err != nil {
		runner.Close()
		logger.Error("MIGRATE", err.Error())
		logger.Close()
		os.Exit(1)
	}
	if err := runner.Close(); err != nil {
		logger.Warn("MIGRATE", err.Error())
	}
}

func run(runner *migrations.Runner, action string, target uint, logger *logger.Logger) error {
	switch action {
	case "up":
		if err := runner.Up(); err != nil {
			return err
		}
	case "down":
		if err := runner.Down(); err != nil {
			return err
		}
	case "to":
		if err := runner.To(target); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	version, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	logger.Info("MIGRATE", fmt.Sprintf("Schema at version %d (dirty: %t)", version, dirty))
	return nil
}
