// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/mirror"
	"github.com/cynayd/connect-core/internal/sfu"
	"github.com/cynayd/connect-core/internal/worker"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/puzpuzpuz/xsync/v4"
)

type record struct {
	router sfu.Router
	workerIndex int
}

// Registry is the per-node router registry.
type Registry struct {
	kv kv.KV
	pool *worker.Pool
	instanceID string
	codecs sfu.CodecTable
	codecHash uint64

	local *xsync.Map[string, *record]
}

// New builds a Registry with the codec table fixed for the lifetime of the
// process, ("codec table fixed at boot").
func New(kvClient kv.KV, pool *worker.Pool, instanceID string) (*Registry, error) {
	codecs := sfu.DefaultCodecTable()
	hash, err := hashstructure.Hash(codecs, hashstructure.FormatV2, nil)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.FatalGlobal, "failed to hash codec table", err)
	}
	return &Registry{
		kv: kvClient,
		pool: pool,
		instanceID: instanceID,
		codecs: codecs,
		codecHash: hash,
		local: xsync.NewMap[string, *record](),
	}, nil
}

// CodecHash returns the hash of the codec table this registry was built
// with. Nothing compares it against the hash of another worker or node.
func (r *Registry) CodecHash() uint64 {
	return r.codecHash
}

// Codecs returns the fixed codec table every router on this node was
// created with, surfaced to clients as rtpCapabilities on join.
func (r *Registry) Codecs() sfu.CodecTable {
	return r.codecs
}

// GetOrCreate returns the local router for roomID, creating one if absent.
// shouldHost reports whether the routing service believes this node should own the room; a
// false result is logged as a warning but the router is still created, per
// the failover carve-out ("else still proceed... but log a warning").
func (r *Registry) GetOrCreate(ctx context.Context, roomID string, shouldHost bool) (sfu.Router, error) {
	if rec, ok := r.local.Load(roomID); ok {
		return rec.router, nil
	}

	if !shouldHost {
		slog.Warn("creating router for room this node may not own", "room_id", roomID, "instance_id", r.instanceID)
	}

	handle, idx, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rtr, err := handle.CreateRouter(r.codecs)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.FatalLocal, "failed to create router", err)
	}

	actual, loaded := r.local.LoadOrStore(roomID, &record{router: rtr, workerIndex: idx})
	if loaded {
		// Lost the race to a concurrent GetOrCreate; discard ours.
		_ = rtr.Close()
		return actual.router, nil
	}
	r.pool.RegisterRouter(idx)

	if err := r.mirror(ctx, roomID, rtr.ID()); err != nil {
		slog.Warn("failed to mirror router assignment", "room_id", roomID, "error", err)
	}

	return rtr, nil
}

func (r *Registry) mirror(ctx context.Context, roomID, routerID string) error {
	if r.kv == nil {
		return nil
	}
	entry := Entry{
		RoomID: roomID,
		RouterID: routerID,
		ServerInstanceID: r.instanceID,
		CreatedAtUnixMs: time.Now().UnixMilli(),
	}
	data, err := mirror.Encode(&entry)
	if err != nil {
		return err
	}
	key := mirror.RouterKey(roomID)
	if err := r.kv.Set(ctx, key, data); err != nil {
		return err
	}
	return r.kv.Expire(ctx, key, mirror.RouterTTL)
}

// Close closes the local router for roomID and removes its mirror entry,
// decrementing the owning worker's advisory router counter.
func (r *Registry) Close(ctx context.Context, roomID string) error {
	rec, ok := r.local.LoadAndDelete(roomID)
	if !ok {
		return nil
	}
	r.pool.UnregisterRouter(rec.workerIndex)

	if r.kv != nil {
		if err := r.kv.Delete(ctx, mirror.RouterKey(roomID)); err != nil {
			slog.Warn("failed to remove router mirror", "room_id", roomID, "error", err)
		}
	}

	if err := rec.router.Close(); err != nil {
		return apierrors.Wrap(apierrors.FatalLocal, "failed to close router", err)
	}
	return nil
}

// Count reports how many routers are live on this node, for metrics.
func (r *Registry) Count() int {
	n := 0
	r.local.Range(func(_ string, _ *record) bool {
		n++
		return true
	})
	return n
}
