// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package models

import (
	"time"

	"gorm.io/gorm"
)

// JoinRequestStatus is the lifecycle state of a request-join, for rooms
// with RequireApproval set.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

// JoinRequest is a durable "knock" against a room awaiting host
// approve/reject.
type JoinRequest struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	RoomID uint `json:"roomId" gorm:"index"`
	Room   Room `json:"-" gorm:"foreignKey:RoomID"`

	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`

	Status JoinRequestStatus `json:"status" gorm:"default:pending"`

	RequestedAt time.Time  `json:"requestedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy  string     `json:"resolvedBy,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// FindPendingJoinRequest returns the existing pending request for
// (roomID, userID), if any — duplicate request-join calls resolve to the
// same row rather than creating a second one.
func FindPendingJoinRequest(db *gorm.DB, roomID uint, userID string) (JoinRequest, error) {
	var jr JoinRequest
	err := db.Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, JoinRequestPending).
		First(&jr).Error
	return jr, err
}

// ListPendingJoinRequests returns every pending request for a room, for the
// host's pending-requests view.
func ListPendingJoinRequests(db *gorm.DB, roomID uint) ([]JoinRequest, error) {
	var requests []JoinRequest
	err := db.Where("room_id = ? AND status = ?", roomID, JoinRequestPending).Find(&requests).Error
	return requests, err
}

// Resolve marks a join request approved or rejected by resolverUserID.
func (jr *JoinRequest) Resolve(db *gorm.DB, status JoinRequestStatus, resolverUserID string) error {
	now := time.Now()
	jr.Status = status
	jr.ResolvedAt = &now
	jr.ResolvedBy = resolverUserID
	return db.Save(jr).Error
}
