// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package worker

import (
	"sync/atomic"

	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/sfu"
	"github.com/google/uuid"
)

// inProcessHandle satisfies Handle without forking an actual media-plane
// process. It exists so a node can stand the control plane up — and so
// integration tests can exercise Acquire/restart/RegisterRouter — without a
// real mediasoup-style worker binary on PATH; the native SFU engine itself
// is an external collaborator maintained outside this repository.
type inProcessHandle struct {
	alive atomic.Bool
}

// InProcessSpawner is the default Spawner used when no external worker
// binary is configured. Every call succeeds immediately and the resulting
// handle reports Alive until Close.
func InProcessSpawner(_ *config.Worker, _ int) (Handle, error) {
	h := &inProcessHandle{}
	h.alive.Store(true)
	return h, nil
}

func (h *inProcessHandle) CreateRouter(_ sfu.CodecTable) (sfu.Router, error) {
	return &inProcessRouter{id: uuid.NewString()}, nil
}

func (h *inProcessHandle) Alive() bool {
	return h.alive.Load()
}

func (h *inProcessHandle) Close() error {
	h.alive.Store(false)
	return nil
}

type inProcessRouter struct {
	id string
}

func (r *inProcessRouter) ID() string { return r.id }

func (r *inProcessRouter) CreateTransport(_ sfu.TransportOptions) (sfu.Transport, error) {
	return &inProcessTransport{id: uuid.NewString()}, nil
}

func (r *inProcessRouter) Close() error { return nil }

type inProcessTransport struct {
	id string
}

func (t *inProcessTransport) ID() string { return t.id }

func (t *inProcessTransport) Connect(_ any) error { return nil }

func (t *inProcessTransport) Produce(kind sfu.MediaKind, _ any) (sfu.Producer, error) {
	return &inProcessProducer{id: uuid.NewString(), kind: kind}, nil
}

func (t *inProcessTransport) Consume(producer sfu.Producer, _ any) (sfu.Consumer, error) {
	return &inProcessConsumer{id: uuid.NewString(), producerID: producer.ID()}, nil
}

func (t *inProcessTransport) Close() error { return nil }

type inProcessProducer struct {
	id   string
	kind sfu.MediaKind
}

func (p *inProcessProducer) ID() string           { return p.id }
func (p *inProcessProducer) Kind() sfu.MediaKind   { return p.kind }
func (p *inProcessProducer) Pause() error          { return nil }
func (p *inProcessProducer) Resume() error         { return nil }
func (p *inProcessProducer) ReplaceTrack(_ any) error { return nil }
func (p *inProcessProducer) Close() error          { return nil }

type inProcessConsumer struct {
	id         string
	producerID string
}

func (c *inProcessConsumer) ID() string         { return c.id }
func (c *inProcessConsumer) ProducerID() string { return c.producerID }
func (c *inProcessConsumer) Close() error       { return nil }
