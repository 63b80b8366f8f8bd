package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mykana/wellness/internal/config"
	"github.com/mykana/wellness/internal/database"
	"github.com/mykana/wellness/internal/db/migrate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	command := flag.String("command", "up", "Migration command (up/down/status)")
	configPath := flag.String("config", "", "path to config.yaml")
	dir := flag.String("dir", "", "Read migrations from this directory instead of the bundled set")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Disconnect(pool)

	var manager *migrate.Manager
	if *dir != "" {
		manager = migrate.NewManager(pool, os.DirFS(*dir), logger)
	} else {
		manager = migrate.NewManager(pool, nil, logger)
	}

	switch *command {
	case "up":
		if err := manager.Up(ctx); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		fmt.Println("Successfully applied all pending migrations")

	case "down":
		err := manager.Down(ctx)
		if errors.Is(err, migrate.ErrNothingToRollBack) {
			fmt.Println("Nothing to roll back")
			return
		}
		if err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		fmt.Println("Successfully rolled back last migration")

	case "status":
		if err := printStatus(ctx, manager); err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

func printStatus(ctx context.Context, manager *migrate.Manager) error {
	if err := manager.Initialize(ctx); err != nil {
		return err
	}
	migrations, err := manager.LoadMigrations()
	if err != nil {
		return err
	}
	applied, err := manager.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
	for _, m := range migrations {
		at := "pending"
		if ts, ok := applied[m.Version]; ok {
			at = ts.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", m.Version, m.Name, at)
	}
	return w.Flush()
}
