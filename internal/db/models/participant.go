// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package models

import (
	"time"

	"gorm.io/gorm"
)

// Participant is the durable shadow of a user's membership in a room. A
// rejoin after disconnect upserts this row rather than creating a new one;
// LeftAt is cleared on rejoin and set on leave-room.
type Participant struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	RoomID uint `json:"roomId" gorm:"uniqueIndex:idx_participant_room_user"`
	Room   Room `json:"-" gorm:"foreignKey:RoomID"`

	UserID      string `json:"userId" gorm:"uniqueIndex:idx_participant_room_user"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PictureURL  string `json:"pictureUrl"`

	IsHost bool `json:"isHost"`

	JoinedAt time.Time  `json:"joinedAt"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// UpsertParticipant inserts a new participant row or, on conflict with the
// (room, user) unique index, clears LeftAt and refreshes JoinedAt — the
// durable half of the rejoin path described for join-room.
func UpsertParticipant(db *gorm.DB, p *Participant) error {
	var existing Participant
	err := db.Where("room_id = ? AND user_id = ?", p.RoomID, p.UserID).First(&existing).Error
	switch {
	case err == nil:
		existing.DisplayName = p.DisplayName
		existing.Email = p.Email
		existing.PictureURL = p.PictureURL
		existing.JoinedAt = time.Now()
		existing.LeftAt = nil
		*p = existing
		return db.Save(p).Error
	case gorm.ErrRecordNotFound == err:
		p.JoinedAt = time.Now()
		return db.Create(p).Error
	default:
		return err
	}
}

// MarkLeft sets LeftAt on the participant row for (roomID, userID).
func MarkLeft(db *gorm.DB, roomID uint, userID string) error {
	now := time.Now()
	return db.Model(&Participant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("left_at", &now).Error
}

// ListActiveParticipants returns every participant in a room that has not
// left, for reconstructing `existingParticipants` on join.
func ListActiveParticipants(db *gorm.DB, roomID uint) ([]Participant, error) {
	var participants []Participant
	err := db.Where("room_id = ? AND left_at IS NULL", roomID).Find(&participants).Error
	return participants, err
}
