// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package models holds the durable, gorm-mapped shape of the control
// plane's relational store: rooms, participants, join requests, chat, and
// the recording lifecycle. Everything ephemeral (sessions, transports,
// producers, consumers, router/worker accounting) lives only in the shared
// store and in-process registries — see internal/mirror and internal/routing.
package models

import (
	"time"

	"gorm.io/gorm"
)

// AppSettings is a singleton row used to gate one-time database seeding on
// first boot, the same way the teacher codebase does.
type AppSettings struct {
	ID        uint `gorm:"primaryKey"`
	HasSeeded bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
