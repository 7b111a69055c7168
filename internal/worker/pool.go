// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package worker manages the bounded pool of SFU worker processes that back
// every router, transport, producer, and consumer created on this node
//. The pool itself never touches media; it tracks liveness and
// advisory load so the router registry can pick a worker without every
// caller re-implementing round robin and crash detection.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/sfu"
)

// ErrNoWorkers is returned by Acquire when every worker in the pool is dead.
var ErrNoWorkers = errors.New("worker: no live workers available")

// Handle is the external collaborator contract a single SFU worker process
// satisfies. The control plane never implements routing/transport math
// itself; it only supervises the process and forwards capability calls to
// it.
type Handle interface {
	sfu.Worker
	// Alive reports whether the worker process is still responsive.
	Alive() bool
	// Close terminates the worker process.
	Close() error
}

// Spawner constructs a new worker Handle, e.g. forking a mediasoup-style
// worker process bound to cfg.Worker's port range.
type Spawner func(cfg *config.Worker, index int) (Handle, error)

type slot struct {
	handle Handle
	routerCount atomic.Int64
	restarts atomic.Int32
	mu sync.Mutex // serializes restart of this slot
}

// Pool is the fixed-size set of worker slots for this node. Slot count is
// fixed at startup (cfg.Worker.Count, default one per logical concern);
// dead slots are restarted in place rather than the pool being resized.
type Pool struct {
	cfg *config.Worker
	spawn Spawner
	slots []*slot
	next atomic.Uint64
	closing atomic.Bool
}

// New spawns cfg.Worker.Count workers and returns the pool. If any worker
// fails to spawn at startup, New returns a FatalGlobal error: the process
// cannot serve any room without at least one worker.
func New(cfg *config.Worker, spawn Spawner) (*Pool, error) {
	count := cfg.Count
	if count < 1 {
		count = 1
	}

	p := &Pool{cfg: cfg, spawn: spawn, slots: make([]*slot, count)}
	for i := range p.slots {
		h, err := spawn(cfg, i)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.FatalGlobal, "failed to spawn worker", err)
		}
		p.slots[i] = &slot{handle: h}
	}
	return p, nil
}

// Acquire selects the next worker by round robin among live slots. A dead
// slot is skipped and its restart is kicked off in the background. Returns
// apierrors.FatalLocal (not FatalGlobal: other nodes can still serve) if
// every slot is currently dead.
func (p *Pool) Acquire(ctx context.Context) (Handle, int, error) {
	n := len(p.slots)
	start := int(p.next.Add(1)-1) % n //nolint:gosec

	for i := range n {
		idx := (start + i) % n
		s := p.slots[idx]
		if s.handle.Alive() {
			return s.handle, idx, nil
		}
		go p.restart(ctx, idx)
	}
	return nil, -1, apierrors.Wrap(apierrors.FatalLocal, "no live workers", ErrNoWorkers)
}

// restart replaces a dead slot's handle. Restart is serialized per slot (via
// slot.mu) so a storm of Acquire calls against the same dead slot doesn't
// spawn more than one replacement process.
func (p *Pool) restart(ctx context.Context, idx int) {
	if p.closing.Load() {
		return
	}
	s := p.slots[idx]
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()

	if s.handle.Alive() {
		return
	}
	if int(s.restarts.Load()) >= p.cfg.MaxRestarts {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(p.cfg.RestartBackoff):
	}

	h, err := p.spawn(p.cfg, idx)
	if err != nil {
		s.restarts.Add(1)
		return
	}
	s.handle = h
	s.routerCount.Store(0)
	s.restarts.Add(1)
}

// RegisterRouter bumps the advisory router counter for the slot a router
// was created on; it does not gate anything, it only informs future
// load-balancing and health reporting.
func (p *Pool) RegisterRouter(idx int) {
	if idx < 0 || idx >= len(p.slots) {
		return
	}
	p.slots[idx].routerCount.Add(1)
}

// UnregisterRouter decrements the advisory router counter, floored at zero
// since a close racing a crash-restart can double-decrement.
func (p *Pool) UnregisterRouter(idx int) {
	if idx < 0 || idx >= len(p.slots) {
		return
	}
	s := p.slots[idx]
	for {
		cur := s.routerCount.Load()
		if cur <= 0 {
			return
		}
		if s.routerCount.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// LiveCount reports how many slots currently report Alive, used by the
// readiness probe.
func (p *Pool) LiveCount() int {
	n := 0
	for _, s := range p.slots {
		if s.handle.Alive() {
			n++
		}
	}
	return n
}

// Close terminates every worker slot. Safe to call once during supervisor
// shutdown.
func (p *Pool) Close() error {
	p.closing.Store(true)
	var errs []error
	for _, s := range p.slots {
		s.mu.Lock()
		if err := s.handle.Close(); err != nil {
			errs = append(errs, err)
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}
