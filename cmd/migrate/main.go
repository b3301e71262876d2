package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	repo "faucet-backend/internal/adapter/repository/mysql"
	"faucet-backend/internal/config"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		fmt.Println("Error: migration command is required")
		fmt.Println("Usage: go run ./cmd/migrate [command]")
		fmt.Println("Commands: up, down, status, redo")
		os.Exit(1)
	}
	if cfg.DBDriver != config.DriverMySQL {
		log.Error("migrations target MySQL; sqlite schemas are created on startup", "driver", cfg.DBDriver)
		os.Exit(1)
	}

	command := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Info("starting migration", "command", command)

	if err := repo.RunMigrations(ctx, cfg.MySQLDSN(), command); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	fmt.Println("Migration finished successfully")
}
