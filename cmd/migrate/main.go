package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/quorumdesk/agm-api/internal/config"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/storage/migrations"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	logger.Initialize("info")
	log := logger.Migration()

	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	createDB := flag.Bool("create-db", false, "Create the database if it does not exist")
	flag.Parse()

	log.Info("Starting migration process", "rollback", *rollback)

	if *createDB {
		if err := ensureDatabase(cfg); err != nil {
			log.Error("Failed to create database", "error", err)
			os.Exit(1)
		}
	}

	db, err := postgres.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if *rollback {
		log.Info("Rolling back migrations...")
		if err := migrations.RollbackMigration(db); err != nil {
			log.Error("Migration rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migration rollback completed successfully")
	} else {
		log.Info("Running migrations...")
		if err := migrations.RunMigrations(db); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")
	}

	fmt.Println("Migration process completed!")
}

// ensureDatabase connects to the maintenance database and creates the
// application database when missing. Runs outside GORM because the target
// database may not exist yet.
func ensureDatabase(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open maintenance connection: %w", err)
	}
	defer db.Close()

	var exists bool
	err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DB.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	if strings.ContainsAny(cfg.DB.Name, `"'; `) {
		return fmt.Errorf("invalid database name %q", cfg.DB.Name)
	}

	if _, err := db.Exec(fmt.Sprintf(`CREATE DATABASE %q`, cfg.DB.Name)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	logger.Migration().Info("Database created", "name", cfg.DB.Name)
	return nil
}
