// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// refreshInterval is how often RegisterRoutes' background goroutine
// refreshes the Prometheus gauge set between scrapes.
const refreshInterval = 15 * time.Second

// RegisterRoutes mounts /healthz (liveness), /readyz (readiness) and
// /api/v1/health (comprehensive report) on r, and starts a goroutine that
// keeps metrics current until ctx is canceled.
func RegisterRoutes(ctx context.Context, r *gin.Engine, checker *Checker, metrics *Metrics, sessions, routers, transports, producers, consumers Counters) {
	r.GET("/healthz", func(c *gin.Context) {
		if checker.Liveness() {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusServiceUnavailable)
	})

	r.GET("/readyz", func(c *gin.Context) {
		if checker.Readiness(c.Request.Context()) {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusServiceUnavailable)
	})

	r.GET("/api/v1/health", func(c *gin.Context) {
		report := checker.Comprehensive(c.Request.Context())
		status := http.StatusOK
		if report.Tier == TierUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})

	go runRefreshLoop(ctx, checker, metrics, sessions, routers, transports, producers, consumers)
}

func runRefreshLoop(ctx context.Context, checker *Checker, metrics *Metrics, sessions, routers, transports, producers, consumers Counters) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := checker.Comprehensive(ctx)
			metrics.Refresh(report, sessions, routers, transports, producers, consumers)
		}
	}
}
