// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package testutils

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/USA-RedDragon/configulator"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/db"
	internalhttp "github.com/cynayd/connect-core/internal/http"
	"github.com/cynayd/connect-core/internal/pubsub"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TestDB wraps an in-memory-backed *gorm.DB opened for a single test, so
// callers get a symmetric setup/teardown pair instead of reaching into the
// *sql.DB themselves.
type TestDB struct {
	DB *gorm.DB
}

// CloseDB releases the underlying sql.DB connection.
func (t *TestDB) CloseDB() {
	if t == nil || t.DB == nil {
		return
	}
	sqlDB, err := t.DB.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}

// CreateTestDBRouter builds a fully wired router over an in-memory SQLite
// database and in-memory pub-sub, marked ready, for HTTP handler tests.
func CreateTestDBRouter() (*gin.Engine, *TestDB, error) {
	cfg, err := configulator.New[config.Config]().Default()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create default config: %w", err)
	}
	cfg.Database.Database = ""
	cfg.Database.ExtraParameters = []string{}

	database, err := db.MakeDB(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database: %w", err)
	}

	ps, err := pubsub.MakePubSub(context.Background(), &cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	ready := &atomic.Bool{}
	ready.Store(true)

	router := internalhttp.CreateRouter(&cfg, nil, database, ps, ready, "test", "deadbeef")

	return router, &TestDB{DB: database}, nil
}
