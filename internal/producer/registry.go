// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package producer implements the per-room producer registry. Lookups
// are local-first; a producer created on another node can be represented by
// a foreign marker. PauseByKind and ResumeByKind skip foreign entries; the
// signaling layer routes per-producer controls to the owning node itself.
package producer

import (
	"context"
	"log/slog"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/mirror"
	"github.com/cynayd/connect-core/internal/sfu"
	"github.com/puzpuzpuz/xsync/v4"
)

type entry struct {
	producer sfu.Producer // nil for a foreign producer known only by id
	socketID string
	roomID   string
	foreign  bool
}

// Registry is the per-node producer registry.
type Registry struct {
	kv kv.KV
	m  *xsync.Map[string, *entry]
}

// New builds an empty producer registry.
func New(kvClient kv.KV) *Registry {
	return &Registry{kv: kvClient, m: xsync.NewMap[string, *entry]()}
}

// Add registers a locally created producer and mirrors it into the room's
// producer set and the socket's producer membership set.
func (r *Registry) Add(ctx context.Context, p sfu.Producer, socketID, roomID string) {
	r.m.Store(p.ID(), &entry{producer: p, socketID: socketID, roomID: roomID})

	if r.kv == nil {
		return
	}
	if _, err := r.kv.RPush(ctx, mirror.RoomProducersKey(roomID), []byte(p.ID())); err != nil {
		slog.Warn("failed to mirror room producer membership", "producer_id", p.ID(), "error", err)
	}
	if _, err := r.kv.RPush(ctx, mirror.SocketSetKey(socketID, mirror.SocketProducers), []byte(p.ID())); err != nil {
		slog.Warn("failed to mirror socket producer membership", "producer_id", p.ID(), "error", err)
	}
	if err := r.kv.Set(ctx, mirror.ProducerKey(p.ID()), []byte(roomID)); err != nil {
		slog.Warn("failed to mirror producer metadata", "producer_id", p.ID(), "error", err)
	}
	if err := r.kv.Expire(ctx, mirror.ProducerKey(p.ID()), mirror.StateEntryTTL); err != nil {
		slog.Warn("failed to set producer mirror ttl", "producer_id", p.ID(), "error", err)
	}
}

// FindByID returns a local producer, or reports foreign=true when the id was
// recorded with MarkForeign as existing on another node.
func (r *Registry) FindByID(id string) (p sfu.Producer, foreign bool, ok bool) {
	e, loaded := r.m.Load(id)
	if !loaded {
		return nil, false, false
	}
	return e.producer, e.foreign, true
}

// MarkForeign records that a producer id exists on another node, so FindByID
// reports it as foreign rather than unknown. A consume request for a foreign
// producer is still answered with NotFound.
func (r *Registry) MarkForeign(id, roomID string) {
	r.m.LoadOrStore(id, &entry{roomID: roomID, foreign: true})
}

// Close removes and closes a local producer.
func (r *Registry) Close(ctx context.Context, id string) error {
	e, ok := r.m.LoadAndDelete(id)
	if !ok {
		return apierrors.New(apierrors.NotFound, "producer not found: "+id)
	}
	if r.kv != nil {
		if err := r.kv.Delete(ctx, mirror.ProducerKey(id)); err != nil {
			slog.Warn("failed to remove producer mirror", "producer_id", id, "error", err)
		}
	}
	if e.foreign || e.producer == nil {
		return nil
	}
	if err := e.producer.Close(); err != nil {
		return apierrors.Wrap(apierrors.FatalLocal, "failed to close producer", err)
	}
	return nil
}

// PauseByKind pauses every local producer of the given kind in a room,
// e.g. to implement a host-forced mute.
func (r *Registry) PauseByKind(roomID string, kind sfu.MediaKind) error {
	var lastErr error
	r.m.Range(func(_ string, e *entry) bool {
		if e.roomID != roomID || e.foreign || e.producer == nil || e.producer.Kind() != kind {
			return true
		}
		if err := e.producer.Pause(); err != nil {
			lastErr = err
		}
		return true
	})
	return lastErr
}

// ResumeByKind resumes every local producer of the given kind in a room.
func (r *Registry) ResumeByKind(roomID string, kind sfu.MediaKind) error {
	var lastErr error
	r.m.Range(func(_ string, e *entry) bool {
		if e.roomID != roomID || e.foreign || e.producer == nil || e.producer.Kind() != kind {
			return true
		}
		if err := e.producer.Resume(); err != nil {
			lastErr = err
		}
		return true
	})
	return lastErr
}

// CloseAllForSocket closes every local producer owned by socketID.
func (r *Registry) CloseAllForSocket(ctx context.Context, socketID string) error {
	var ids []string
	r.m.Range(func(id string, e *entry) bool {
		if e.socketID == socketID {
			ids = append(ids, id)
		}
		return true
	})
	var lastErr error
	for _, id := range ids {
		if err := r.Close(ctx, id); err != nil {
			lastErr = err
		}
	}
	if r.kv != nil {
		if err := r.kv.Delete(ctx, mirror.SocketSetKey(socketID, mirror.SocketProducers)); err != nil {
			slog.Warn("failed to clear socket producer set", "socket_id", socketID, "error", err)
		}
	}
	return lastErr
}

// Summary is a read-only view of a local producer, for building join-ack
// and broadcast payloads without exposing the underlying sfu.Producer.
type Summary struct {
	ID       string
	Kind     sfu.MediaKind
	SocketID string
}

// Owner returns the socket and room that created a producer, so a caller
// can tell whether a request against it came from the session that owns
// it before routing a foreign one through the cross-node bus.
func (r *Registry) Owner(id string) (socketID, roomID string, ok bool) {
	e, loaded := r.m.Load(id)
	if !loaded {
		return "", "", false
	}
	return e.socketID, e.roomID, true
}

// ListByRoom summarizes every local, non-foreign producer in roomID, for
// the otherProducers list returned on join.
func (r *Registry) ListByRoom(roomID string) []Summary {
	var out []Summary
	r.m.Range(func(id string, e *entry) bool {
		if e.roomID != roomID || e.foreign || e.producer == nil {
			return true
		}
		out = append(out, Summary{ID: id, Kind: e.producer.Kind(), SocketID: e.socketID})
		return true
	})
	return out
}

// ListBySocket summarizes every local, non-foreign producer owned by
// socketID, so a disconnecting session's producers can be announced as
// closed before the registry actually closes them.
func (r *Registry) ListBySocket(socketID string) []Summary {
	var out []Summary
	r.m.Range(func(id string, e *entry) bool {
		if e.socketID != socketID || e.foreign || e.producer == nil {
			return true
		}
		out = append(out, Summary{ID: id, Kind: e.producer.Kind(), SocketID: e.socketID})
		return true
	})
	return out
}

// Count reports the number of live local producers, for metrics.
func (r *Registry) Count() int {
	n := 0
	r.m.Range(func(_ string, e *entry) bool {
		if !e.foreign {
			n++
		}
		return true
	})
	return n
}
