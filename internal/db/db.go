// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package db opens and migrates the durable store: SQLite for single-node
// development, Postgres for production. It owns AppSettings's first-boot
// seeding gate and the connection pool tuning applied to every driver.
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/consts"
	"github.com/cynayd/connect-core/internal/db/migration"
	"github.com/cynayd/connect-core/internal/db/models"
	"github.com/glebarez/sqlite"
	gorm_seeder "github.com/kachit/gorm-seeder"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errUnsupportedDriver = errors.New("unsupported database driver")

// MakeDB opens the configured database driver, migrates the schema, and
// seeds a default room on first boot.
func MakeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.OTLPEndpoint != "" {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to instrument database: %w", err)
		}
	}

	if err := db.AutoMigrate(&models.AppSettings{}); err != nil {
		return nil, fmt.Errorf("failed to migrate app settings: %w", err)
	}

	var appSettings models.AppSettings
	result := db.Where("id = ?", 1).Limit(1).Find(&appSettings)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query app settings: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		slog.Info("app settings entry doesn't exist, migrating and creating it")

		if err := migration.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		appSettings = models.AppSettings{HasSeeded: false}
		if err := db.Create(&appSettings).Error; err != nil {
			return nil, fmt.Errorf("failed to create app settings: %w", err)
		}
	}

	if !appSettings.HasSeeded {
		roomsSeeder := models.NewRoomsSeeder(gorm_seeder.SeederConfiguration{Rows: models.RoomSeederRows})
		seedersStack := gorm_seeder.NewSeedersStack(db)
		seedersStack.AddSeeder(&roomsSeeder)

		if err := seedersStack.Seed(); err != nil {
			return nil, fmt.Errorf("failed to seed database: %w", err)
		}
		appSettings.HasSeeded = true
		if err := db.Save(&appSettings).Error; err != nil {
			return nil, fmt.Errorf("failed to save app settings: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * consts.ConnsPerCPU)
	sqlDB.SetConnMaxIdleTime(consts.MaxIdleTime)

	return db, nil
}

func open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case config.DatabaseDriverSQLite:
		slog.Info("opening sqlite database", "path", cfg.Database.Database)
		db, err := gorm.Open(sqlite.Open(cfg.Database.Database), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	case config.DatabaseDriverPostgres:
		dsn := postgresDSN(cfg)
		slog.Info("opening postgres database", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedDriver, cfg.Database.Driver)
	}
}

func postgresDSN(cfg *config.Config) string {
	parts := []string{
		"host=" + cfg.Database.Host,
		"port=" + strconv.Itoa(cfg.Database.Port),
		"user=" + cfg.Database.Username,
		"dbname=" + cfg.Database.Database,
		"password=" + cfg.Database.Password,
	}
	parts = append(parts, cfg.Database.ExtraParameters...)
	return strings.Join(parts, " ")
}
