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

func initialSchemaMigration202601010000(_ *gorm.DB) *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202601010000",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(
				&models.Room{},
				&models.Participant{},
				&models.JoinRequest{},
				&models.ChatMessage{},
				&models.MuteState{},
				&models.RecordingSession{},
				&models.RecordingAsset{},
			); err != nil {
				return fmt.Errorf("could not create initial schema: %w", err)
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&models.RecordingAsset{},
				&models.RecordingSession{},
				&models.MuteState{},
				&models.ChatMessage{},
				&models.JoinRequest{},
				&models.Participant{},
				&models.Room{},
			)
		},
	}
}
