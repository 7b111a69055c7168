// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package ratelimit adapts the control plane's shared KV store to
// gin-rate-limit's Store interface, so request limiting shares the same
// Redis-or-in-memory backend as everything else rather than pulling in a
// dedicated limiter store.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/gin-gonic/gin"
)

// Store rate-limits by key using fixed windows recorded in the shared KV
// store, so counters are consistent across every node serving a client.
type Store struct {
	kv    kv.KV
	rate  time.Duration
	limit uint
}

// Options configures a new Store.
type Options struct {
	KV    kv.KV
	Rate  time.Duration
	Limit uint
}

// NewStore builds a KV-backed gin-rate-limit store.
func NewStore(options *Options) *Store {
	return &Store{
		kv:    options.KV,
		rate:  options.Rate,
		limit: options.Limit,
	}
}

type window struct {
	Hits      int64     `json:"hits"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Store) key(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}

// Limit implements ratelimit.Store.
func (s *Store) Limit(key string, _ *gin.Context) (ret ratelimit.Info) {
	ctx := context.Background()
	ret.Limit = s.limit

	storeKey := s.key(key)
	w := window{Timestamp: time.Now()}

	if raw, err := s.kv.Get(ctx, storeKey); err == nil {
		if jsonErr := json.Unmarshal(raw, &w); jsonErr != nil {
			slog.Error("failed to decode rate limit window", "key", key, "error", jsonErr)
			w = window{Timestamp: time.Now()}
		}
	}

	if w.Timestamp.Add(s.rate).Before(time.Now()) {
		w.Hits = 0
		w.Timestamp = time.Now()
	}

	ret.ResetTime = w.Timestamp.Add(s.rate)

	if w.Hits >= int64(s.limit) {
		ret.RateLimited = true
		ret.RemainingHits = 0
	} else {
		w.Hits++
		ret.RemainingHits = s.limit - uint(w.Hits)
	}

	encoded, err := json.Marshal(w)
	if err != nil {
		slog.Error("failed to encode rate limit window", "key", key, "error", err)
		return
	}

	if err := s.kv.Set(ctx, storeKey, encoded); err != nil {
		slog.Error("failed to save rate limit window", "key", key, "error", err)
		return
	}
	if err := s.kv.Expire(ctx, storeKey, s.rate); err != nil {
		slog.Error("failed to set rate limit window expiry", "key", key, "error", err)
	}

	return
}
