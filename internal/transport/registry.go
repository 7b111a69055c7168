// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package transport implements the per-socket transport registry.
// Transports are created against a room's router, attach an ICE/DTLS (or
// plain) listener, and are closed individually or en masse when a socket
// disconnects.
package transport

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
	transport sfu.Transport
	socketID  string
	roomID    string
}

// Registry is the per-node transport registry.
type Registry struct {
	kv kv.KV
	m  *xsync.Map[string, *entry]
}

// New builds an empty transport registry.
func New(kvClient kv.KV) *Registry {
	return &Registry{kv: kvClient, m: xsync.NewMap[string, *entry]()}
}

// Create opens a new transport on rtr for socketID/roomID and registers it.
func (r *Registry) Create(ctx context.Context, rtr sfu.Router, socketID, roomID string, opts sfu.TransportOptions) (sfu.Transport, error) {
	t, err := rtr.CreateTransport(opts)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.FatalLocal, "failed to create transport", err)
	}

	r.m.Store(t.ID(), &entry{transport: t, socketID: socketID, roomID: roomID})

	if r.kv != nil {
		key := mirror.SocketSetKey(socketID, mirror.SocketTransports)
		if _, err := r.kv.RPush(ctx, key, []byte(t.ID())); err != nil {
			slog.Warn("failed to mirror socket transport membership", "transport_id", t.ID(), "error", err)
		}
		if err := r.kv.Set(ctx, mirror.TransportKey(t.ID()), []byte(roomID)); err != nil {
			slog.Warn("failed to mirror transport metadata", "transport_id", t.ID(), "error", err)
		}
		if err := r.kv.Expire(ctx, mirror.TransportKey(t.ID()), mirror.StateEntryTTL); err != nil {
			slog.Warn("failed to set transport mirror ttl", "transport_id", t.ID(), "error", err)
		}
	}

	return t, nil
}

// Find returns the local transport for id along with the socket that owns
// it, so a caller can verify ownership before connecting/producing/consuming
// on it.
func (r *Registry) Find(id string) (sfu.Transport, string, bool) {
	e, ok := r.m.Load(id)
	if !ok {
		return nil, "", false
	}
	return e.transport, e.socketID, true
}

// Close closes a single transport by id and removes its mirror entry.
func (r *Registry) Close(ctx context.Context, transportID string) error {
	e, ok := r.m.LoadAndDelete(transportID)
	if !ok {
		return apierrors.New(apierrors.NotFound, "transport not found: "+transportID)
	}
	if r.kv != nil {
		if err := r.kv.Delete(ctx, mirror.TransportKey(transportID)); err != nil {
			slog.Warn("failed to remove transport mirror", "transport_id", transportID, "error", err)
		}
	}
	if err := e.transport.Close(); err != nil {
		return apierrors.Wrap(apierrors.FatalLocal, "failed to close transport", err)
	}
	return nil
}

// CloseAllForSocket closes every transport owned by socketID, used on
// disconnect cleanup. Best-effort: all transports are attempted even if one
// fails.
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
		if err := r.kv.Delete(ctx, mirror.SocketSetKey(socketID, mirror.SocketTransports)); err != nil {
			slog.Warn("failed to clear socket transport set", "socket_id", socketID, "error", err)
		}
	}
	return lastErr
}

// Count reports the number of live transports on this node, for metrics.
func (r *Registry) Count() int {
	n := 0
	r.m.Range(func(_ string, _ *entry) bool {
		n++
		return true
	})
	return n
}
