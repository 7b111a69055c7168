// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package models

import (
	gorm_seeder "github.com/kachit/gorm-seeder"
	"gorm.io/gorm"
)

// RoomSeederRows is the number of rows RoomsSeeder creates on first boot.
const RoomSeederRows = 1

// RoomsSeeder creates a single default "lobby" room on first boot, so a
// fresh deployment has somewhere to join without first exercising the
// room-CRUD HTTP surface (out of scope for this module).
type RoomsSeeder struct {
	gorm_seeder.SeederAbstract
}

// NewRoomsSeeder builds a RoomsSeeder with the given row-batch configuration.
func NewRoomsSeeder(cfg gorm_seeder.SeederConfiguration) RoomsSeeder {
	return RoomsSeeder{gorm_seeder.NewSeederAbstract(cfg)}
}

func (s *RoomsSeeder) Seed(db *gorm.DB) error {
	rooms := []Room{
		{
			Code:        "lobb-yroo-mxxx",
			Name:        "Lobby",
			OwnerUserID: "system",
		},
	}
	return db.CreateInBatches(rooms, s.Configuration.Rows).Error
}

func (s *RoomsSeeder) Clear(db *gorm.DB) error {
	return db.Where("owner_user_id = ?", "system").Delete(&Room{}).Error
}
