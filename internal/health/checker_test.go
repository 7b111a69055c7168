// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package health_test

import (
	"context"
	"testing"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/health"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/worker"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

type fakeBreakerState struct {
	state gobreaker.State
}

func (f fakeBreakerState) State() gobreaker.State { return f.state }

func makeTestKVStore(t *testing.T) kv.KV {
	t.Helper()
	defConfig, err := configulator.New[config.Config]().Default()
	assert.NoError(t, err)
	store, err := kv.MakeKV(context.Background(), &defConfig)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeTestPool(t *testing.T) *worker.Pool {
	t.Helper()
	cfg := &config.Worker{Count: 1, RestartBackoff: time.Millisecond, MaxRestarts: 1}
	pool, err := worker.New(cfg, worker.InProcessSpawner)
	assert.NoError(t, err)
	return pool
}

func TestLivenessAlwaysTrue(t *testing.T) {
	t.Parallel()
	c := health.New(nil, nil, nil, nil, nil)
	assert.True(t, c.Liveness())
}

func TestReadinessTrueWithNoDependenciesConfigured(t *testing.T) {
	t.Parallel()
	c := health.New(nil, nil, nil, nil, nil)
	assert.True(t, c.Readiness(context.Background()))
}

func TestReadinessFalseWhenNoLiveWorkers(t *testing.T) {
	t.Parallel()
	pool := makeTestPool(t)
	assert.NoError(t, pool.Close())

	c := health.New(nil, nil, pool, nil, nil)
	assert.False(t, c.Readiness(context.Background()))
}

func TestReadinessTrueWithSharedStoreAndWorkers(t *testing.T) {
	t.Parallel()
	store := makeTestKVStore(t)
	pool := makeTestPool(t)

	c := health.New(nil, store, pool, nil, nil)
	assert.True(t, c.Readiness(context.Background()))
}

func TestComprehensiveDegradesOnOpenBreaker(t *testing.T) {
	t.Parallel()
	store := makeTestKVStore(t)
	pool := makeTestPool(t)
	open := fakeBreakerState{state: gobreaker.StateOpen}

	c := health.New(nil, store, pool, open, nil)
	report := c.Comprehensive(context.Background())

	assert.Equal(t, health.TierDegraded, report.Tier)
	assert.Equal(t, "open", report.DBBreaker)
}

func TestComprehensiveUnhealthyWhenWorkersDead(t *testing.T) {
	t.Parallel()
	store := makeTestKVStore(t)
	pool := makeTestPool(t)
	assert.NoError(t, pool.Close())

	c := health.New(nil, store, pool, nil, nil)
	report := c.Comprehensive(context.Background())

	assert.Equal(t, health.TierUnhealthy, report.Tier)
	assert.Equal(t, 0, report.LiveWorkers)
}

func TestComprehensiveHealthyWhenEverythingUp(t *testing.T) {
	t.Parallel()
	store := makeTestKVStore(t)
	pool := makeTestPool(t)
	closed := fakeBreakerState{state: gobreaker.StateClosed}

	c := health.New(nil, store, pool, closed, closed)
	report := c.Comprehensive(context.Background())

	assert.Equal(t, health.TierHealthy, report.Tier)
	assert.True(t, report.DatabaseUp)
	assert.True(t, report.SharedStoreUp)
}
