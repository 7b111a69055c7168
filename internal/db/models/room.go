// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package models

import (
	"time"

	"gorm.io/gorm"
)

// Room is a durable conferencing room. The code is the human-shareable
// identifier (`[a-z]{4}-[a-z]{4}-[a-z]{4}`); ID is the stable foreign key
// used by every other table in this package.
type Room struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Code        string `json:"code" gorm:"uniqueIndex;size:14"`
	Name        string `json:"name"`
	OwnerUserID string `json:"ownerUserId" gorm:"index"`

	// RequireApproval gates request-join behind an explicit host
	// approve/reject, surfacing as JoinRequest rows instead of an
	// immediate Participant row.
	RequireApproval bool `json:"requireApproval"`

	ClosedAt *time.Time `json:"closedAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// FindRoomByCode looks up a room by its human-shareable code.
func FindRoomByCode(db *gorm.DB, code string) (Room, error) {
	var room Room
	err := db.Where("code = ?", code).First(&room).Error
	return room, err
}

// CountRooms returns the number of non-deleted rooms, for health/metrics
// surfacing.
func CountRooms(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&Room{}).Count(&count).Error
	return count, err
}
