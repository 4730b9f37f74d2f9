// Package migration manages the database schema. Development environments
// use gorm AutoMigrate for fast iteration; everything else runs the embedded
// goose SQL scripts.
package migration

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/lumina-dash/lumina/internal/infrastructure/persistence/models"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

//go:embed scripts/*.sql
var embeddedScripts embed.FS

// Manager runs schema migrations against the connected database.
type Manager struct {
	environment string
	dialect     string
	logger      logger.Interface
}

// NewManager creates a migration manager. dialect is the goose dialect name
// matching the configured database driver ("mysql" or "sqlite3").
func NewManager(environment, driver string) *Manager {
	dialect := "mysql"
	if driver == "sqlite" {
		dialect = "sqlite3"
	}
	return &Manager{
		environment: environment,
		dialect:     dialect,
		logger:      logger.NewLogger().With("component", "migration"),
	}
}

// Migrate brings the schema up to date.
func (m *Manager) Migrate(db *gorm.DB) error {
	if m.environment == "development" {
		return m.autoMigrate(db)
	}
	return m.gooseUp(db)
}

func (m *Manager) autoMigrate(db *gorm.DB) error {
	m.logger.Infow("running auto-migration")

	if err := db.AutoMigrate(
		&models.AuthStateModel{},
		&models.PlatformConnectionModel{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	m.logger.Infow("auto-migration completed")
	return nil
}

func (m *Manager) gooseUp(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	goose.SetBaseFS(embeddedScripts)
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	currentVersion, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if err := goose.Up(sqlDB, "scripts"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	m.logger.Infow("migration completed",
		"from_version", currentVersion,
		"to_version", finalVersion,
	)
	return nil
}

// MigrateDown rolls back the given number of migrations.
func (m *Manager) MigrateDown(db *gorm.DB, steps int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	goose.SetBaseFS(embeddedScripts)
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	for i := 0; i < steps; i++ {
		if err := goose.Down(sqlDB, "scripts"); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	}

	m.logger.Infow("rollback completed", "steps", steps)
	return nil
}

// Version returns the current schema version.
func (m *Manager) Version(db *gorm.DB) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	goose.SetBaseFS(embeddedScripts)
	if err := goose.SetDialect(m.dialect); err != nil {
		return 0, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.GetDBVersion(sqlDB)
}
