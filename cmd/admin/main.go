package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mykana/wellness/internal/audit"
	"github.com/mykana/wellness/internal/auth"
	"github.com/mykana/wellness/internal/config"
	"github.com/mykana/wellness/internal/database"
	"github.com/mykana/wellness/internal/db/migrate"
)

// admin creates a patient account directly in the database, for support and
// local setup.
func main() {
	name := flag.String("name", "", "Patient name")
	email := flag.String("email", "", "Patient email")
	password := flag.String("password", "", "Initial password")
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if *name == "" || *password == "" || *email == "" {
		log.Fatal("Name, email, and password are required. Use -name, -email, and -password flags")
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	auditLogger := logrus.New()
	auditLogger.SetFormatter(&logrus.JSONFormatter{})
	auditLogger.SetOutput(os.Stderr)
	auditService := audit.NewService(nil, auditLogger)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer database.Disconnect(db)

	if err := migrate.NewManager(db, nil, nil).Up(ctx); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	authService := auth.NewService(db, auditService, auth.AuthServiceConfig{
		JWTSecret:   cfg.Security.JWTSecret,
		TokenExpiry: cfg.Security.TokenExpiry,
	})

	user, err := authService.Register(ctx, *name, *email, *password)
	if err != nil {
		log.Fatalf("Failed to create patient account: %v", err)
	}

	fmt.Printf("Successfully created patient account:\n")
	fmt.Printf("ID: %s\n", user.ID)
	fmt.Printf("Name: %s\n", user.Name)
	fmt.Printf("Email: %s\n", user.Email)

	// A login round trip confirms the stored hash and the JWT settings.
	if _, err := authService.Login(ctx, *email, *password); err != nil {
		log.Printf("WARNING: Login verification failed: %v", err)
	} else {
		log.Printf("Login verified successfully")
	}
}
