// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package signaling

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// EventType names one entry of the signaling event vocabulary.
type EventType string

const (
	EventJoinRoom EventType = "joinRoom"
	EventLeaveRoom EventType = "leaveRoom"
	EventCreateTransport EventType = "createTransport"
	EventConnectTransport EventType = "connectTransport"
	EventProduce EventType = "produce"
	EventConsume EventType = "consume"
	EventCloseProducer EventType = "closeProducer"
	EventPauseProducer EventType = "pauseProducer"
	EventResumeProducer EventType = "resumeProducer"
	EventReplaceTrack EventType = "replaceTrack"
	EventChatSend EventType = "chat:send"
	EventChatHistory EventType = "chat:history"
	EventAudioMute EventType = "audio-mute"
	EventVideoMute EventType = "video-mute"

	// Server-initiated events, pushed outside the request/response ack
	// cycle via Session.Send and fanned out to a room by
	// Manager.broadcastToRoom.
	EventUserJoined EventType = "user-joined"
	EventUserLeft EventType = "user-left"
	EventNewProducer EventType = "new-producer"
	EventProducerClosed EventType = "producer-closed"
	EventProducerPaused EventType = "producer-paused"
	EventProducerResumed EventType = "producer-resumed"
	EventProducerTrackReplaced EventType = "producer-track-replaced"
	EventScreenShareStarted EventType = "screen-share-started"
	EventScreenShareStopped EventType = "screen-share-stopped"
	EventChatMessage EventType = "chat:message"
)

// Envelope is the wire shape of every inbound/outbound signaling message:
// a tagged event name plus an opaque, event-specific payload.
type Envelope struct {
	Event EventType `json:"event"`
	RequestID string `json:"requestId,omitempty"`
	Payload any `json:"payload,omitempty"`
}

// Ack is the response envelope for a request/response-shaped event.
type Ack struct {
	RequestID string `json:"requestId,omitempty"`
	Success bool `json:"success"`
	Error string `json:"error,omitempty"`
	Redirect *Redirect `json:"redirect,omitempty"`
	Payload any `json:"payload,omitempty"`
}

// Redirect is attached to a failed joinRoom ack when this node is not the
// room's owner, per the open question on wrong-node routing: the client
// reconnects to the indicated node rather than the server proxying the
// whole session.
type Redirect struct {
	ServerInstanceID string `json:"serverInstanceId"`
}

// JoinAckPayload is the payload of a successful joinRoom ack: the room's
// codec table, every other producer already active in the room, and every
// other participant already present.
type JoinAckPayload struct {
	RTPCapabilities any `json:"rtpCapabilities"`
	OtherProducers []ProducerSummary `json:"otherProducers"`
	ExistingParticipants []ParticipantSummary `json:"existingParticipants"`
}

// ProducerSummary describes a remote producer in an emission or ack
// payload: enough for a peer to decide whether and how to consume it.
type ProducerSummary struct {
	ProducerID string `json:"producerId"`
	UserID string `json:"userId"`
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	AppData map[string]any `json:"appData,omitempty"`
}

// ParticipantSummary describes a room participant in a join ack or a
// user-joined/user-left emission.
type ParticipantSummary struct {
	UserID string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

// MuteStatePayload is broadcast whenever a participant's mute state
// changes, whether self-applied or host-forced.
type MuteStatePayload struct {
	UserID string `json:"userId"`
	AudioMuted bool `json:"audioMuted"`
	VideoMuted bool `json:"videoMuted"`
	HostForcedAudio bool `json:"hostForcedAudio,omitempty"`
	HostForcedVideo bool `json:"hostForcedVideo,omitempty"`
}

// roomCodePattern matches a four-four-four lowercase room code, e.g.
// "abcd-efgh-ijkl".
var roomCodePattern = regexp.MustCompile(`^[a-z]{4}-[a-z]{4}-[a-z]{4}$`)

// ValidRoomCode reports whether code matches the room code format.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

const roomCodeAlphabet = "abcdefghijklmnopqrstuvwxyz"

// GenerateRoomCode produces a fresh random four-four-four room code.
func GenerateRoomCode() (string, error) {
	var groups [3]string
	for g := range groups {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		for i, v := range b {
			b[i] = roomCodeAlphabet[int(v)%len(roomCodeAlphabet)]
		}
		groups[g] = string(b)
	}
	return fmt.Sprintf("%s-%s-%s", groups[0], groups[1], groups[2]), nil
}
