// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package consumer implements the per-socket consumer registry. A
// consumer is implicitly closed when its transport closes or its source
// producer closes; OnTransportClosed/OnProducerClosed let those registries
// notify this one without a direct dependency.
package consumer

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
	consumer    sfu.Consumer
	socketID    string
	transportID string
}

// Registry is the per-node consumer registry.
type Registry struct {
	kv kv.KV
	m  *xsync.Map[string, *entry]
}

// New builds an empty consumer registry.
func New(kvClient kv.KV) *Registry {
	return &Registry{kv: kvClient, m: xsync.NewMap[string, *entry]()}
}

// Add registers a new consumer against its owning transport and socket.
func (r *Registry) Add(ctx context.Context, c sfu.Consumer, socketID, transportID string) {
	r.m.Store(c.ID(), &entry{consumer: c, socketID: socketID, transportID: transportID})

	if r.kv == nil {
		return
	}
	if _, err := r.kv.RPush(ctx, mirror.SocketSetKey(socketID, mirror.SocketConsumers), []byte(c.ID())); err != nil {
		slog.Warn("failed to mirror socket consumer membership", "consumer_id", c.ID(), "error", err)
	}
	if err := r.kv.Set(ctx, mirror.ConsumerKey(c.ID()), []byte(c.ProducerID())); err != nil {
		slog.Warn("failed to mirror consumer metadata", "consumer_id", c.ID(), "error", err)
	}
	if err := r.kv.Expire(ctx, mirror.ConsumerKey(c.ID()), mirror.StateEntryTTL); err != nil {
		slog.Warn("failed to set consumer mirror ttl", "consumer_id", c.ID(), "error", err)
	}
}

func (r *Registry) close(ctx context.Context, id string) error {
	e, ok := r.m.LoadAndDelete(id)
	if !ok {
		return nil
	}
	if r.kv != nil {
		if err := r.kv.Delete(ctx, mirror.ConsumerKey(id)); err != nil {
			slog.Warn("failed to remove consumer mirror", "consumer_id", id, "error", err)
		}
	}
	if err := e.consumer.Close(); err != nil {
		return apierrors.Wrap(apierrors.FatalLocal, "failed to close consumer", err)
	}
	return nil
}

// OnTransportClosed closes every consumer riding on transportID.
func (r *Registry) OnTransportClosed(ctx context.Context, transportID string) {
	var ids []string
	r.m.Range(func(id string, e *entry) bool {
		if e.transportID == transportID {
			ids = append(ids, id)
		}
		return true
	})
	for _, id := range ids {
		if err := r.close(ctx, id); err != nil {
			slog.Warn("failed to close consumer on transport close", "consumer_id", id, "error", err)
		}
	}
}

// OnProducerClosed closes every consumer subscribed to producerID.
func (r *Registry) OnProducerClosed(ctx context.Context, producerID string) {
	var ids []string
	r.m.Range(func(id string, e *entry) bool {
		if e.consumer.ProducerID() == producerID {
			ids = append(ids, id)
		}
		return true
	})
	for _, id := range ids {
		if err := r.close(ctx, id); err != nil {
			slog.Warn("failed to close consumer on producer close", "consumer_id", id, "error", err)
		}
	}
}

// CloseAllForSocket closes every consumer owned by socketID.
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
		if err := r.close(ctx, id); err != nil {
			lastErr = err
		}
	}
	if r.kv != nil {
		if err := r.kv.Delete(ctx, mirror.SocketSetKey(socketID, mirror.SocketConsumers)); err != nil {
			slog.Warn("failed to clear socket consumer set", "socket_id", socketID, "error", err)
		}
	}
	return lastErr
}

// Count reports the number of live consumers, for metrics.
func (r *Registry) Count() int {
	n := 0
	r.m.Range(func(_ string, _ *entry) bool {
		n++
		return true
	})
	return n
}
