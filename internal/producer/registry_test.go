// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package producer_test

import (
	"context"
	"testing"

	"github.com/cynayd/connect-core/internal/producer"
	"github.com/cynayd/connect-core/internal/sfu"
	"github.com/cynayd/connect-core/internal/worker"
	"github.com/stretchr/testify/assert"
)

func newTestProducer(t *testing.T, kind sfu.MediaKind) sfu.Producer {
	t.Helper()
	h, err := worker.InProcessSpawner(nil, 0)
	assert.NoError(t, err)
	r, err := h.CreateRouter(sfu.DefaultCodecTable())
	assert.NoError(t, err)
	tr, err := r.CreateTransport(sfu.TransportOptions{Producing: true})
	assert.NoError(t, err)
	p, err := tr.Produce(kind, nil)
	assert.NoError(t, err)
	return p
}

func TestAddThenFindByIDReturnsLocalProducer(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	p := newTestProducer(t, sfu.KindAudio)
	reg.Add(context.Background(), p, "socket-1", "room-1")

	found, foreign, ok := reg.FindByID(p.ID())
	assert.True(t, ok)
	assert.False(t, foreign)
	assert.Equal(t, p.ID(), found.ID())
	assert.Equal(t, 1, reg.Count())
}

func TestFindByIDUnknownReturnsNotOK(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	_, _, ok := reg.FindByID("missing")
	assert.False(t, ok)
}

func TestMarkForeignIsFoundButNotCounted(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	reg.MarkForeign("remote-producer", "room-1")

	p, foreign, ok := reg.FindByID("remote-producer")
	assert.True(t, ok)
	assert.True(t, foreign)
	assert.Nil(t, p)
	assert.Equal(t, 0, reg.Count())
}

func TestCloseRemovesLocalProducer(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	p := newTestProducer(t, sfu.KindVideo)
	reg.Add(context.Background(), p, "socket-1", "room-1")

	assert.NoError(t, reg.Close(context.Background(), p.ID()))
	_, _, ok := reg.FindByID(p.ID())
	assert.False(t, ok)
}

func TestCloseForeignProducerSkipsLocalClose(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	reg.MarkForeign("remote-producer", "room-1")
	assert.NoError(t, reg.Close(context.Background(), "remote-producer"))
}

func TestCloseUnknownProducerIsNotFound(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	err := reg.Close(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPauseAndResumeByKindOnlyAffectMatchingKind(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	audio := newTestProducer(t, sfu.KindAudio)
	video := newTestProducer(t, sfu.KindVideo)
	reg.Add(context.Background(), audio, "socket-1", "room-1")
	reg.Add(context.Background(), video, "socket-1", "room-1")

	assert.NoError(t, reg.PauseByKind("room-1", sfu.KindAudio))
	assert.NoError(t, reg.ResumeByKind("room-1", sfu.KindAudio))
}

func TestCloseAllForSocketOnlyClosesOwned(t *testing.T) {
	t.Parallel()
	reg := producer.New(nil)
	pa := newTestProducer(t, sfu.KindAudio)
	pb := newTestProducer(t, sfu.KindAudio)
	reg.Add(context.Background(), pa, "socket-a", "room-1")
	reg.Add(context.Background(), pb, "socket-b", "room-1")

	assert.NoError(t, reg.CloseAllForSocket(context.Background(), "socket-a"))
	assert.Equal(t, 1, reg.Count())
}
