// Package database manages the PostgreSQL connection and schema migration.
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"velvet-server/internal/config"
	"velvet-server/internal/infrastructure/logger"
)

const schemaName = "velvet"

var schemaRegistry []any

// RegisterSchemaForAutoMigrate adds a model to the auto-migration set.
// Entities register themselves from init so the set stays next to the schema
// definitions.
func RegisterSchemaForAutoMigrate(model any) {
	schemaRegistry = append(schemaRegistry, model)
}

// Connect opens the database and configures the connection pool.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	log := logger.GetLogger()
	log.Info().
		Int("max_open_conns", cfg.DBMaxOpenConns).
		Int("max_idle_conns", cfg.DBMaxIdleConns).
		Dur("conn_max_lifetime", cfg.DBConnMaxLifetime).
		Msg("database connected")

	return db, nil
}

// Migration creates the schema and auto-migrates all registered entities.
func Migration(db *gorm.DB) error {
	if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)).Error; err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	start := time.Now()
	if err := db.AutoMigrate(schemaRegistry...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	log := logger.GetLogger()
	log.Info().
		Int("entities", len(schemaRegistry)).
		Dur("took", time.Since(start)).
		Msg("database migration complete")
	return nil
}
