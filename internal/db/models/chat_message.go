// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxChatContentLength matches the chat:send size limit in the signaling
// protocol (content over this length is rejected before it ever reaches
// this model).
const MaxChatContentLength = 2000

// ChatMessage is a durable room or direct chat message. RecipientUserID is
// empty for a room broadcast and set for a direct message.
type ChatMessage struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	RoomID uint `json:"roomId" gorm:"index"`
	Room   Room `json:"-" gorm:"foreignKey:RoomID"`

	SenderUserID    string `json:"senderUserId" gorm:"index"`
	RecipientUserID string `json:"recipientUserId,omitempty"`

	Content string `json:"content"`

	// ClientMessageID lets a client deduplicate its own optimistic send
	// against the server-broadcast echo.
	ClientMessageID string `json:"clientMessageId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ListRoomHistory returns up to limit messages older than the cursor
// (a message ID), newest first, for chat:history pagination. A
// participantID scopes the result to a direct-message thread when set.
func ListRoomHistory(db *gorm.DB, roomID uint, participantID string, cursor uint, limit int) ([]ChatMessage, error) {
	query := db.Where("room_id = ?", roomID)
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}
	if participantID != "" {
		query = query.Where("sender_user_id = ? OR recipient_user_id = ?", participantID, participantID)
	}

	var messages []ChatMessage
	err := query.Order("id DESC").Limit(limit).Find(&messages).Error
	return messages, err
}
