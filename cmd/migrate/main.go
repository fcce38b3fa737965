package main

import (
	"FillIndexer/internal/config"
	"FillIndexer/internal/observability"
	"FillIndexer/internal/persistence"
	"FillIndexer/migrations"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", os.Getenv("FILLINDEXER_CONFIG"), "path to a YAML config file")
	dir := flag.String("dir", "", "read migrations from this directory (default: migrations_dir from config)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: migrate [-config file] [-dir path] <up|down>")
		fmt.Println("  up   - apply all pending migrations")
		fmt.Println("  down - roll back the last migration")
		fmt.Println()
		fmt.Println("Environment:")
		fmt.Println("  FILLINDEXER_POSTGRES_DSN - Postgres connection string")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	if *dir == "" {
		*dir = cfg.MigrationsDir
	}
	files, source := migrations.Source(*dir)

	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("FATAL: open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	logger := observability.NewLoggers(cfg.Logging, nil).For("migrate")
	logger.Info().Str("source", source).Msg("reading migrations")
	migrator := persistence.NewMigrator(db, files, logger)

	switch flag.Arg(0) {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("FATAL: migrate up: %v", err)
		}
		log.Println("INFO: all migrations applied")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			log.Fatalf("FATAL: migrate down: %v", err)
		}
		log.Println("INFO: last migration rolled back")

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (use 'up' or 'down')\n", flag.Arg(0))
		os.Exit(1)
	}
}
