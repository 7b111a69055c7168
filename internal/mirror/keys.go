// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package mirror holds the shared-store key schema and wire encoding used to
// mirror in-process registry state (routers, transports, producers,
// consumers, room assignments, recordings, mute state) across nodes. Every
// registry entry owned by a node has exactly one mirror key. Per-entry keys
// carry a TTL that lets them self-heal if the owning node disappears without
// cleaning up after itself; the list-valued membership sets (socket sets,
// room producer sets, server room sets) are given no TTL.
package mirror

import (
	"fmt"
	"time"
)

// TTLs applied to the keys below. Each is set when its key is written and
// is not refreshed on read; a key written again (a recording snapshot, a
// mute change, a heartbeat) gets its TTL set again at that write.
const (
	RoomAssignmentTTL = 24 * time.Hour
	ServerStatusTTL   = 90 * time.Second
	RouterTTL         = 24 * time.Hour
	StateEntryTTL     = time.Hour
	MuteTTL           = time.Hour
	ControlTTL        = time.Hour
	RecordingTTL      = 15 * time.Minute
)

// RoomAssignmentKey maps a room to the server instance currently hosting it.
func RoomAssignmentKey(roomID string) string {
	return "connect:routing:room:" + roomID
}

// ServerRoomsKey holds the set of room ids a server instance currently hosts.
func ServerRoomsKey(serverID string) string {
	return fmt.Sprintf("connect:routing:server:%s:rooms", serverID)
}

// ServerStatusKey holds a server instance's last heartbeat.
func ServerStatusKey(serverID string) string {
	return fmt.Sprintf("connect:routing:server:%s:status", serverID)
}

// ProducerKey mirrors a single producer's metadata.
func ProducerKey(producerID string) string {
	return "connect:state:producer:" + producerID
}

// ConsumerKey mirrors a single consumer's metadata.
func ConsumerKey(consumerID string) string {
	return "connect:state:consumer:" + consumerID
}

// TransportKey mirrors a single transport's metadata.
func TransportKey(transportID string) string {
	return "connect:state:transport:" + transportID
}

// RouterKey mirrors a room's router assignment (router id, owning instance,
// creation time).
func RouterKey(roomID string) string {
	return "connect:state:router:" + roomID
}

// SocketSetKind names which per-socket membership set a key addresses.
type SocketSetKind string

const (
	SocketProducers  SocketSetKind = "producers"
	SocketConsumers  SocketSetKind = "consumers"
	SocketTransports SocketSetKind = "transports"
)

// SocketSetKey holds the ids a single signaling session currently owns, so
// disconnect cleanup has a bounded set to walk instead of scanning
// everything.
func SocketSetKey(socketID string, kind SocketSetKind) string {
	return fmt.Sprintf("connect:state:socket:%s:%s", socketID, kind)
}

// RoomProducersKey holds the set of producer ids currently active in a room.
func RoomProducersKey(roomID string) string {
	return "connect:state:room:" + roomID + ":producers"
}

// RoomMuteKey mirrors one user's mute state within a room.
func RoomMuteKey(roomCode, userID string) string {
	return fmt.Sprintf("connect:state:room:%s:mute:%s", roomCode, userID)
}

// RoomControlKey mirrors host-forced room-wide controls.
func RoomControlKey(roomCode string) string {
	return "connect:state:room:" + roomCode + ":control"
}

// RecordingKey mirrors a room's active recording session snapshot.
func RecordingKey(roomID string) string {
	return "connect:state:recording:" + roomID
}
