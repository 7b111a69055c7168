// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package migration

import (
	"fmt"

	"github.com/cynayd/connect-core/internal/db/models"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// addRoomClosedAtMigration202602010000 backfills the closed_at column onto
// deployments that ran the initial schema before RequireApproval/ClosedAt
// were added to models.Room.
func addRoomClosedAtMigration202602010000(_ *gorm.DB) *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202602010000",
		Migrate: func(tx *gorm.DB) error {
			if tx.Migrator().HasTable(&models.Room{}) && !tx.Migrator().HasColumn(&models.Room{}, "closed_at") {
				if err := tx.Migrator().AddColumn(&models.Room{}, "ClosedAt"); err != nil {
					return fmt.Errorf("could not add closed_at column: %w", err)
				}
			}
			if tx.Migrator().HasTable(&models.Room{}) && !tx.Migrator().HasColumn(&models.Room{}, "require_approval") {
				if err := tx.Migrator().AddColumn(&models.Room{}, "RequireApproval"); err != nil {
					return fmt.Errorf("could not add require_approval column: %w", err)
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if tx.Migrator().HasColumn(&models.Room{}, "closed_at") {
				if err := tx.Migrator().DropColumn(&models.Room{}, "closed_at"); err != nil {
					return fmt.Errorf("could not drop closed_at column: %w", err)
				}
			}
			return nil
		},
	}
}
