// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package models

import (
	"time"

	"gorm.io/gorm"
)

// MuteState is the durable shadow of a participant's audio/video mute
// flags. The live copy lives in the shared store with a 1h refresh TTL
// (see internal/mirror); this row exists so mute state survives a shared
// store that has evicted it and so history analytics can read it.
type MuteState struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	RoomID uint `json:"roomId" gorm:"uniqueIndex:idx_mute_room_user"`
	Room   Room `json:"-" gorm:"foreignKey:RoomID"`

	UserID string `json:"userId" gorm:"uniqueIndex:idx_mute_room_user"`

	AudioMuted bool `json:"audioMuted"`
	VideoMuted bool `json:"videoMuted"`

	AudioMutedAt *time.Time `json:"audioMutedAt,omitempty"`
	VideoMutedAt *time.Time `json:"videoMutedAt,omitempty"`

	// HostForcedAudio/Video record that the last mute change on that track
	// was applied by a host rather than the participant themselves, so a
	// client can tell the difference between self-mute and being muted.
	HostForcedAudio bool `json:"hostForcedAudio"`
	HostForcedVideo bool `json:"hostForcedVideo"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// GetMuteState returns the current mute row for (roomID, userID), or a
// zero-valued, unsaved MuteState if none exists yet, so a caller can apply
// a read-modify-write to one track's flag without clobbering the other's.
func GetMuteState(db *gorm.DB, roomID uint, userID string) (MuteState, error) {
	var state MuteState
	err := db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&state).Error
	switch {
	case err == nil:
		return state, nil
	case gorm.ErrRecordNotFound == err:
		return MuteState{RoomID: roomID, UserID: userID}, nil
	default:
		return MuteState{}, err
	}
}

// UpsertMuteState writes the current mute flags for (roomID, userID).
func UpsertMuteState(db *gorm.DB, state *MuteState) error {
	var existing MuteState
	err := db.Where("room_id = ? AND user_id = ?", state.RoomID, state.UserID).First(&existing).Error
	switch {
	case err == nil:
		state.ID = existing.ID
		return db.Save(state).Error
	case gorm.ErrRecordNotFound == err:
		return db.Create(state).Error
	default:
		return err
	}
}
