// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package routing_test

import (
	"context"
	"testing"

	"github.com/USA-RedDragon/configulator"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/routing"
	"github.com/stretchr/testify/assert"
)

func makeTestService(t *testing.T, instanceID string) (*routing.Service, kv.KV) {
	t.Helper()
	defConfig, err := configulator.New[config.Config]().Default()
	assert.NoError(t, err)

	kvStore, err := kv.MakeKV(context.Background(), &defConfig)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	return routing.New(kvStore, instanceID, 7001, 8001), kvStore
}

func TestHeartbeatMakesNodeHealthy(t *testing.T) {
	t.Parallel()
	svc, _ := makeTestService(t, "node-a")
	ctx := context.Background()

	svc.Heartbeat(ctx)

	healthy, err := svc.ListHealthy(ctx)
	assert.NoError(t, err)
	assert.Contains(t, healthy, "node-a")
}

func TestListHealthyAlwaysIncludesOwnNode(t *testing.T) {
	t.Parallel()
	svc, _ := makeTestService(t, "lonely-node")
	ctx := context.Background()

	healthy, err := svc.ListHealthy(ctx)
	assert.NoError(t, err)
	assert.Contains(t, healthy, "lonely-node")
}

func TestGetOrAssignIsStableAcrossCalls(t *testing.T) {
	t.Parallel()
	defConfig, err := configulator.New[config.Config]().Default()
	assert.NoError(t, err)
	kvStore, err := kv.MakeKV(context.Background(), &defConfig)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	svcA := routing.New(kvStore, "node-a", 7001, 8001)
	svcB := routing.New(kvStore, "node-b", 7002, 8002)
	ctx := context.Background()
	svcA.Heartbeat(ctx)
	svcB.Heartbeat(ctx)

	owner1, err := svcA.GetOrAssign(ctx, "room-123")
	assert.NoError(t, err)
	owner2, err := svcB.GetOrAssign(ctx, "room-123")
	assert.NoError(t, err)

	assert.Equal(t, owner1, owner2)
}

func TestShouldHandleMatchesAssignedOwner(t *testing.T) {
	t.Parallel()
	svc, _ := makeTestService(t, "solo-node")
	ctx := context.Background()
	svc.Heartbeat(ctx)

	should, err := svc.ShouldHandle(ctx, "room-456")
	assert.NoError(t, err)
	assert.True(t, should)
}

func TestInstanceIDReturnsConstructorValue(t *testing.T) {
	t.Parallel()
	svc, _ := makeTestService(t, "instance-xyz")
	assert.Equal(t, "instance-xyz", svc.InstanceID())
}

func TestStatusMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	st := &routing.Status{ID: "node-a", LastHeartbeatMs: 1234, SignalingPort: 7001, APIPort: 8001}

	data, err := st.MarshalMsg(nil)
	assert.NoError(t, err)

	var decoded routing.Status
	rest, err := decoded.UnmarshalMsg(data)
	assert.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, *st, decoded)
}
