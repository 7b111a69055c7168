// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/cynayd/connect-core/internal/kv"
	"github.com/google/uuid"
)

type gracefulHandoffKey struct{}

// WithGracefulHandoff marks ctx as belonging to a graceful shutdown, for
// IsGracefulHandoff to report.
func WithGracefulHandoff(ctx context.Context) context.Context {
	return context.WithValue(ctx, gracefulHandoffKey{}, true)
}

// IsGracefulHandoff reports whether ctx was marked by WithGracefulHandoff.
func IsGracefulHandoff(ctx context.Context) bool {
	v, _ := ctx.Value(gracefulHandoffKey{}).(bool)
	return v
}

// GenerateInstanceID returns a fresh random server instance identifier,
// stable for the lifetime of the process.
func GenerateInstanceID() string {
	return uuid.NewString()
}

// InstanceRegistry heartbeats this node's presence into the shared store and
// answers whether any other node is currently alive. The heartbeat period
// and key TTL are passed to NewInstanceRegistry (the routing
// instance-heartbeat and instance-ttl settings, 10s and 30s by default).
type InstanceRegistry struct {
	kv kv.KV
	instanceID string
	ttl time.Duration
	interval time.Duration

	cancel context.CancelFunc
	done chan struct{}
}

// NewInstanceRegistry starts the background heartbeat goroutine immediately.
func NewInstanceRegistry(ctx context.Context, kvClient kv.KV, instanceID string, ttl, heartbeat time.Duration) *InstanceRegistry {
	hbCtx, cancel := context.WithCancel(ctx)
	ir := &InstanceRegistry{
		kv: kvClient,
		instanceID: instanceID,
		ttl: ttl,
		interval: heartbeat,
		cancel: cancel,
		done: make(chan struct{}),
	}
	go ir.loop(hbCtx)
	return ir
}

func (ir *InstanceRegistry) loop(ctx context.Context) {
	defer close(ir.done)
	ticker := time.NewTicker(ir.interval)
	defer ticker.Stop()

	ir.heartbeatOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ir.heartbeatOnce(ctx)
		}
	}
}

func (ir *InstanceRegistry) heartbeatOnce(ctx context.Context) {
	key := instanceKeyPrefix + ir.instanceID
	if err := ir.kv.Set(ctx, key, []byte(ir.instanceID)); err != nil {
		// The own node is optimistically still considered healthy even if
		// the write transiently fails,.
		slog.Warn("instance heartbeat write failed", "instance_id", ir.instanceID, "error", err)
		return
	}
	if err := ir.kv.Expire(ctx, key, ir.ttl); err != nil {
		slog.Warn("instance heartbeat ttl refresh failed", "instance_id", ir.instanceID, "error", err)
	}
}

// instanceKeyPrefix namespaces every instance-presence key in the shared
// store.
const instanceKeyPrefix = "connect:instance:"

// OtherInstancesExist scans for any instance key other than this node's
// own. No code in this repository calls it.
func (ir *InstanceRegistry) OtherInstancesExist(ctx context.Context) bool {
	var cursor uint64
	for {
		keys, next, err := ir.kv.Scan(ctx, cursor, instanceKeyPrefix+"*", 100)
		if err != nil {
			return false
		}
		for _, k := range keys {
			if k != instanceKeyPrefix+ir.instanceID {
				return true
			}
		}
		if next == 0 {
			return false
		}
		cursor = next
	}
}

// Deregister stops the heartbeat loop and removes this node's presence key.
func (ir *InstanceRegistry) Deregister(ctx context.Context) {
	ir.cancel()
	<-ir.done
	if err := ir.kv.Delete(ctx, instanceKeyPrefix+ir.instanceID); err != nil {
		slog.Warn("failed to deregister instance", "instance_id", ir.instanceID, "error", err)
	}
}
