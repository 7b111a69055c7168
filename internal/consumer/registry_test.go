// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package consumer_test

import (
	"context"
	"testing"

	"github.com/cynayd/connect-core/internal/consumer"
	"github.com/cynayd/connect-core/internal/sfu"
	"github.com/cynayd/connect-core/internal/worker"
	"github.com/stretchr/testify/assert"
)

func newTestConsumer(t *testing.T) (sfu.Consumer, string) {
	t.Helper()
	h, err := worker.InProcessSpawner(nil, 0)
	assert.NoError(t, err)
	r, err := h.CreateRouter(sfu.DefaultCodecTable())
	assert.NoError(t, err)
	tr, err := r.CreateTransport(sfu.TransportOptions{Consuming: true})
	assert.NoError(t, err)
	p, err := tr.Produce(sfu.KindAudio, nil)
	assert.NoError(t, err)
	c, err := tr.Consume(p, nil)
	assert.NoError(t, err)
	return c, tr.ID()
}

func TestAddIncrementsCount(t *testing.T) {
	t.Parallel()
	reg := consumer.New(nil)
	c, trID := newTestConsumer(t)
	reg.Add(context.Background(), c, "socket-1", trID)
	assert.Equal(t, 1, reg.Count())
}

func TestOnTransportClosedRemovesRidingConsumers(t *testing.T) {
	t.Parallel()
	reg := consumer.New(nil)
	c, trID := newTestConsumer(t)
	reg.Add(context.Background(), c, "socket-1", trID)

	reg.OnTransportClosed(context.Background(), trID)
	assert.Equal(t, 0, reg.Count())
}

func TestOnProducerClosedRemovesSubscribedConsumers(t *testing.T) {
	t.Parallel()
	reg := consumer.New(nil)
	c, trID := newTestConsumer(t)
	reg.Add(context.Background(), c, "socket-1", trID)

	reg.OnProducerClosed(context.Background(), c.ProducerID())
	assert.Equal(t, 0, reg.Count())
}

func TestCloseAllForSocketOnlyClosesOwned(t *testing.T) {
	t.Parallel()
	reg := consumer.New(nil)
	ca, trA := newTestConsumer(t)
	cb, trB := newTestConsumer(t)
	reg.Add(context.Background(), ca, "socket-a", trA)
	reg.Add(context.Background(), cb, "socket-b", trB)

	assert.NoError(t, reg.CloseAllForSocket(context.Background(), "socket-a"))
	assert.Equal(t, 1, reg.Count())
}

func TestCloseAllForUnknownSocketIsNoop(t *testing.T) {
	t.Parallel()
	reg := consumer.New(nil)
	assert.NoError(t, reg.CloseAllForSocket(context.Background(), "nobody"))
}
