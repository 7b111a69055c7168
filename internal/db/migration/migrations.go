// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

//nolint:golint,wrapcheck
package migration

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies every schema migration in order. AppSettings is migrated
// separately by the db package before this runs, since it gates whether the
// seeders fire.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		initialSchemaMigration202601010000(db),
		addRoomClosedAtMigration202602010000(db),
	})

	if err := m.Migrate(); err != nil {
		return err
	}

	return nil
}
