// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package worker_test

import (
	"testing"

	"github.com/cynayd/connect-core/internal/sfu"
	"github.com/cynayd/connect-core/internal/worker"
	"github.com/stretchr/testify/assert"
)

func TestInProcessSpawnerProducesAliveHandle(t *testing.T) {
	t.Parallel()
	h, err := worker.InProcessSpawner(nil, 0)
	assert.NoError(t, err)
	assert.True(t, h.Alive())

	assert.NoError(t, h.Close())
	assert.False(t, h.Alive())
}

func TestInProcessHandleCreatesDistinctRouters(t *testing.T) {
	t.Parallel()
	h, err := worker.InProcessSpawner(nil, 0)
	assert.NoError(t, err)

	r1, err := h.CreateRouter(sfu.DefaultCodecTable())
	assert.NoError(t, err)
	r2, err := h.CreateRouter(sfu.DefaultCodecTable())
	assert.NoError(t, err)
	assert.NotEqual(t, r1.ID(), r2.ID())
}

func TestInProcessRouterProducesUsableTransport(t *testing.T) {
	t.Parallel()
	h, err := worker.InProcessSpawner(nil, 0)
	assert.NoError(t, err)
	r, err := h.CreateRouter(sfu.DefaultCodecTable())
	assert.NoError(t, err)

	tr, err := r.CreateTransport(sfu.TransportOptions{Producing: true, Consuming: true})
	assert.NoError(t, err)
	assert.NoError(t, tr.Connect(nil))

	p, err := tr.Produce(sfu.KindAudio, nil)
	assert.NoError(t, err)
	assert.Equal(t, sfu.KindAudio, p.Kind())
	assert.NoError(t, p.Pause())
	assert.NoError(t, p.Resume())

	c, err := tr.Consume(p, nil)
	assert.NoError(t, err)
	assert.Equal(t, p.ID(), c.ProducerID())

	assert.NoError(t, c.Close())
	assert.NoError(t, p.Close())
	assert.NoError(t, tr.Close())
	assert.NoError(t, r.Close())
}
