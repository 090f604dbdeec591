package main

import (
	"log"

	"conversation-core/internal/config"
	"conversation-core/internal/model"
	"conversation-core/pkg/database"

	"github.com/fatih/color"
)

func main() {
	// 1. Load Environment Variables
	cfg := config.Load()

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDB(database.GormConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.Connection,
	})
	if err != nil {
		log.Fatal(color.RedString("Error: Failed to connect to database: %v", err))
	}

	color.Cyan("Starting GORM migration (%s)...", cfg.Database.Driver)

	// 3. Pre-Migration: Extensions (Postgres only)
	if cfg.Database.Driver == database.DriverPostgres {
		color.Cyan("Step 1: Setting up extensions...")
		setupSQL := []string{
			`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
			`CREATE EXTENSION IF NOT EXISTS vector;`,
		}
		for _, sql := range setupSQL {
			if err := db.Exec(sql).Error; err != nil {
				color.Yellow("Warn: Failed to execute setup SQL: %v. Continuing...", err)
			}
		}
	}

	// 4. AutoMigrate All Models
	color.Cyan("Step 2: Running AutoMigrate for %d tables...", len(model.All()))
	if err := model.AutoMigrate(db); err != nil {
		log.Fatal(color.RedString("Error: AutoMigrate failed: %v", err))
	}

	color.Green("✅ Success: Database migration completed successfully via GORM.")
}
