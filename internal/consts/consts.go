// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package consts holds small tuning constants shared across the shared-store
// backends (kv and pubsub) that would otherwise be duplicated per-package.
package consts

import "time"

const (
	// ConnsPerCPU is the number of pooled Redis connections to keep open per
	// logical CPU, for both the KV and pub-sub clients.
	ConnsPerCPU = 10
	// MaxIdleTime is how long a pooled Redis connection may sit idle before
	// the client recycles it.
	MaxIdleTime = 10 * time.Minute
)
