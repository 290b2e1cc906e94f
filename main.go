package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"megamillions/cmd"
	"megamillions/config"
	"megamillions/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	command := ""
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Check for migration subcommands
	if command == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error: ", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	var err error
	switch command {
	case "":
		err = cmd.Run(ctx)
	case "ingest":
		err = cmd.Ingest(ctx)
	case "serve":
		err = cmd.Serve(ctx)
	default:
		err = fmt.Errorf("unknown command %q (usage: megamillions [ingest|serve|migrate])", command)
	}
	if err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: megamillions migrate [up|down|status] [args...]")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cmd.SetupLogging(cfg)
	databaseURL := cfg.GetDatabaseURL()

	switch os.Args[2] {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		return database.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", os.Args[2])
	}
}
