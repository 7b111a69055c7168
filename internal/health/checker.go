// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package health implements liveness/readiness probes and a
// comprehensive status report for the control plane, plus the Prometheus
// gauges fed by every other package's Count()/LiveCount() accessors.
package health

import (
	"context"
	"time"

	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/worker"
	"github.com/sony/gobreaker/v2"
	"gorm.io/gorm"
)

// probeTimeout bounds how long a single dependency check (database ping,
// shared-store round trip) is allowed to take before it counts as failed.
const probeTimeout = 3 * time.Second

// pingKey is the shared-store key readiness checks round-trip through. It
// carries no meaning beyond existing.
const pingKey = "connect:health:ping"

// Tier is the coarse-grained verdict of a comprehensive health check.
type Tier string

const (
	TierHealthy   Tier = "healthy"
	TierDegraded  Tier = "degraded"
	TierUnhealthy Tier = "unhealthy"
)

// BreakerState is implemented by internal/breaker.Breaker[T]; declared here
// as a narrow interface so this package doesn't need to know T.
type BreakerState interface {
	State() gobreaker.State
}

// Checker holds every collaborator a health probe needs to inspect.
type Checker struct {
	db *gorm.DB
	kv kv.KV

	workers *worker.Pool

	dbBreaker    BreakerState
	sharedBreaker BreakerState
}

// New builds a Checker. Either breaker may be nil, in which case its state
// is left out of the comprehensive report.
func New(db *gorm.DB, kvClient kv.KV, workers *worker.Pool, dbBreaker, sharedBreaker BreakerState) *Checker {
	return &Checker{db: db, kv: kvClient, workers: workers, dbBreaker: dbBreaker, sharedBreaker: sharedBreaker}
}

// Liveness always reports true once the process has reached the point of
// registering routes; it exists only so orchestrators have a cheap endpoint
// that never depends on downstream state.
func (c *Checker) Liveness() bool {
	return true
}

// Readiness reports true only once the database, shared store, and at least
// one media worker are all reachable. It is intentionally strict: a
// readiness failure takes the node out of a load balancer's rotation, which
// is cheaper than serving joinRoom calls that can't actually route media.
func (c *Checker) Readiness(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if !c.pingDatabase(ctx) {
		return false
	}
	if !c.pingSharedStore(ctx) {
		return false
	}
	if c.workers != nil && c.workers.LiveCount() < 1 {
		return false
	}
	return true
}

func (c *Checker) pingDatabase(ctx context.Context) bool {
	if c.db == nil {
		return true
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (c *Checker) pingSharedStore(ctx context.Context) bool {
	if c.kv == nil {
		return true
	}
	if err := c.kv.Set(ctx, pingKey, []byte("1")); err != nil {
		return false
	}
	if _, err := c.kv.Get(ctx, pingKey); err != nil {
		return false
	}
	return true
}

// Report is the comprehensive health document: every dependency's state
// plus the tier it rolls up to.
type Report struct {
	Tier          Tier   `json:"tier"`
	DatabaseUp    bool   `json:"databaseUp"`
	SharedStoreUp bool   `json:"sharedStoreUp"`
	LiveWorkers   int    `json:"liveWorkers"`
	DBBreaker     string `json:"dbBreakerState,omitempty"`
	SharedBreaker string `json:"sharedStoreBreakerState,omitempty"`
}

// Comprehensive builds a full Report. A breaker that is not CLOSED degrades
// the tier; a dead database, a dead shared store, or a worker pool with zero
// live workers is always unhealthy.
func (c *Checker) Comprehensive(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	report := Report{Tier: TierHealthy}
	report.DatabaseUp = c.pingDatabase(ctx)
	report.SharedStoreUp = c.pingSharedStore(ctx)
	if c.workers != nil {
		report.LiveWorkers = c.workers.LiveCount()
	}

	degraded := false
	if c.dbBreaker != nil {
		report.DBBreaker = c.dbBreaker.State().String()
		if c.dbBreaker.State() != gobreaker.StateClosed {
			degraded = true
		}
	}
	if c.sharedBreaker != nil {
		report.SharedBreaker = c.sharedBreaker.State().String()
		if c.sharedBreaker.State() != gobreaker.StateClosed {
			degraded = true
		}
	}
	workersDown := c.workers != nil && report.LiveWorkers < 1

	switch {
	case !report.DatabaseUp || !report.SharedStoreUp || workersDown:
		report.Tier = TierUnhealthy
	case degraded:
		report.Tier = TierDegraded
	default:
		report.Tier = TierHealthy
	}
	return report
}
