// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package models

import (
	"time"

	"gorm.io/gorm"
)

// RecordingStatus is the lifecycle state of a RecordingSession.
type RecordingStatus string

const (
	RecordingStatusStarting  RecordingStatus = "STARTING"
	RecordingStatusRecording RecordingStatus = "RECORDING"
	RecordingStatusUploading RecordingStatus = "UPLOADING"
	RecordingStatusCompleted RecordingStatus = "COMPLETED"
	RecordingStatusFailed    RecordingStatus = "FAILED"
)

// RecordingAssetType distinguishes the single composite asset a recording
// session can produce from any future per-track asset types.
type RecordingAssetType string

// RecordingAssetTypeComposite is the only asset type a recording session
// produces today: the ffmpeg-muxed composite of every attached producer.
const RecordingAssetTypeComposite RecordingAssetType = "COMPOSITE"

// RecordingSession is at most one active row per room (enforced by the
// orchestrator, not a DB constraint, since "active" spans several
// non-terminal statuses).
type RecordingSession struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	RoomID uint `json:"roomId" gorm:"index"`
	Room   Room `json:"-" gorm:"foreignKey:RoomID"`

	HostUserID string          `json:"hostUserId"`
	Status     RecordingStatus `json:"status" gorm:"index"`

	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Duration  time.Duration `json:"durationNanos,omitempty"`

	Assets []RecordingAsset `json:"assets,omitempty" gorm:"foreignKey:RecordingSessionID"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// RecordingAsset is a finished artifact of a recording session, uploaded to
// object storage at StorageKey.
type RecordingAsset struct {
	ID                 uint             `json:"id" gorm:"primaryKey"`
	RecordingSessionID uint             `json:"recordingSessionId" gorm:"index"`
	Type               RecordingAssetType `json:"type"`
	Format             string           `json:"format"`
	SizeBytes          int64            `json:"sizeBytes"`
	StorageKey         string           `json:"storageKey"`

	CreatedAt time.Time `json:"createdAt"`
}

// ActiveRecordingSession returns the room's current non-terminal recording
// session, if any.
func ActiveRecordingSession(db *gorm.DB, roomID uint) (RecordingSession, error) {
	var session RecordingSession
	err := db.Where(
		"room_id = ? AND status IN ?",
		roomID,
		[]RecordingStatus{RecordingStatusStarting, RecordingStatusRecording, RecordingStatusUploading},
	).First(&session).Error
	return session, err
}
