// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package routing implements room-to-server assignment, node health
// tracking, and the cross-node RPC bus. Room placement uses rendezvous
// (highest random weight) hashing over the healthy-node set rather than
// modulo, so a node joining or leaving only reshuffles the rooms that
// actually hashed to it instead of the whole ring.
package routing

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sort"
	"time"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/mirror"
)

// HeartbeatTTL is the window within which a server's status key must have
// been refreshed for the node to be considered healthy.
const HeartbeatTTL = 60 * time.Second

// Service is the per-node room routing service.
type Service struct {
	kv kv.KV
	instanceID string
	signalingPort int
	apiPort int
}

// New builds a routing Service bound to this node's instance id and ports.
func New(kvClient kv.KV, instanceID string, signalingPort, apiPort int) *Service {
	return &Service{kv: kvClient, instanceID: instanceID, signalingPort: signalingPort, apiPort: apiPort}
}

// Heartbeat writes this node's status with a 90s TTL. Call every 30s.
func (s *Service) Heartbeat(ctx context.Context) {
	status := &Status{
		ID: s.instanceID,
		LastHeartbeatMs: time.Now().UnixMilli(),
		SignalingPort: int32(s.signalingPort), //nolint:gosec
		APIPort: int32(s.apiPort), //nolint:gosec
	}
	data, err := mirror.Encode(status)
	if err != nil {
		slog.Error("failed to encode heartbeat", "error", err)
		return
	}
	key := mirror.ServerStatusKey(s.instanceID)
	if err := s.kv.Set(ctx, key, data); err != nil {
		// Own node is optimistically healthy even on a transient write
		// failure,.
		slog.Warn("heartbeat write failed", "error", err)
		return
	}
	if err := s.kv.Expire(ctx, key, mirror.ServerStatusTTL); err != nil {
		slog.Warn("heartbeat ttl refresh failed", "error", err)
	}
}

// ListHealthy scans every server status key, keeps the ones within
// HeartbeatTTL, and returns ids sorted ascending so hash input order is
// stable across nodes.
func (s *Service) ListHealthy(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64
	now := time.Now().UnixMilli()

	for {
		keys, next, err := s.kv.Scan(ctx, cursor, "connect:routing:server:*:status", 100)
		if err != nil {
			if s.isOwnNodeFallback(ids) {
				return []string{s.instanceID}, nil
			}
			return nil, apierrors.Wrap(apierrors.Transient, "failed to scan server status keys", err)
		}
		for _, k := range keys {
			raw, err := s.kv.Get(ctx, k)
			if err != nil || raw == nil {
				continue
			}
			var st Status
			if err := mirror.Decode(raw, &st); err != nil {
				continue
			}
			if now-st.LastHeartbeatMs < HeartbeatTTL.Milliseconds() {
				ids = append(ids, st.ID)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	hasOwn := false
	for _, id := range ids {
		if id == s.instanceID {
			hasOwn = true
			break
		}
	}
	if !hasOwn {
		ids = append(ids, s.instanceID)
	}

	sort.Strings(ids)
	return ids, nil
}

func (s *Service) isOwnNodeFallback(partial []string) bool {
	return len(partial) == 0
}

// rendezvousWeight computes the HRW weight of (roomID, serverID); the
// server with the highest weight over the healthy set owns the room.
func rendezvousWeight(roomID, serverID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(roomID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(serverID))
	return h.Sum64()
}

// pickServer returns the healthy server id with the highest rendezvous
// weight for roomID.
func pickServer(roomID string, healthy []string) string {
	best := ""
	var bestWeight uint64
	for _, id := range healthy {
		w := rendezvousWeight(roomID, id)
		if best == "" || w > bestWeight {
			best = id
			bestWeight = w
		}
	}
	return best
}

// GetOrAssign returns the server instance id that owns roomID, assigning it
// via rendezvous hashing over the healthy set if no assignment exists yet.
// The assignment carries a 24h TTL and the room id is added to the owning
// server's room set. On shared-store failure this fails safe
// to the local node so a single node can still serve rooms.
func (s *Service) GetOrAssign(ctx context.Context, roomID string) (string, error) {
	key := mirror.RoomAssignmentKey(roomID)
	existing, err := s.kv.Get(ctx, key)
	if err == nil && existing != nil {
		return string(existing), nil
	}

	healthy, err := s.ListHealthy(ctx)
	if err != nil || len(healthy) == 0 {
		slog.Warn("falling back to local node for room assignment", "room_id", roomID, "error", err)
		return s.instanceID, nil
	}

	owner := pickServer(roomID, healthy)

	if err := s.kv.Set(ctx, key, []byte(owner)); err != nil {
		slog.Warn("failed to persist room assignment, serving locally", "room_id", roomID, "error", err)
		return s.instanceID, nil
	}
	if err := s.kv.Expire(ctx, key, mirror.RoomAssignmentTTL); err != nil {
		slog.Warn("failed to set room assignment ttl", "room_id", roomID, "error", err)
	}
	if _, err := s.kv.RPush(ctx, mirror.ServerRoomsKey(owner), []byte(roomID)); err != nil {
		slog.Warn("failed to mirror server room membership", "room_id", roomID, "error", err)
	}

	return owner, nil
}

// ShouldHandle reports whether this node should own roomID right now: either
// it already does, or the current healthy-set hash picks it (a takeover
// case, e.g. after the prior owner's heartbeat expired).
func (s *Service) ShouldHandle(ctx context.Context, roomID string) (bool, error) {
	owner, err := s.GetOrAssign(ctx, roomID)
	if err != nil {
		return true, err
	}
	return owner == s.instanceID, nil
}

// InstanceID returns this node's stable identifier.
func (s *Service) InstanceID() string {
	return s.instanceID
}
