// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package pubsub

import (
	"sync"

	"github.com/cynayd/connect-core/internal/config"
)

// subscriberBuffer is how many unconsumed messages a subscriber's channel
// holds before Publish starts dropping for that subscriber. The in-memory
// backend only serves single-node deployments, where slow consumers are a
// bug, not a capacity problem to design around.
const subscriberBuffer = 64

func makeInMemoryPubSub(_ *config.Config) (PubSub, error) {
	return &inMemoryPubSub{
		topics: make(map[string]map[*inMemorySubscription]struct{}),
	}, nil
}

type inMemoryPubSub struct {
	mu     sync.RWMutex
	topics map[string]map[*inMemorySubscription]struct{}
}

func (ps *inMemoryPubSub) Publish(topic string, message []byte) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for sub := range ps.topics[topic] {
		select {
		case sub.ch <- message:
		default:
			// Slow subscriber; drop rather than block the publisher.
		}
	}
	return nil
}

func (ps *inMemoryPubSub) Subscribe(topic string) Subscription {
	sub := &inMemorySubscription{
		ps:    ps,
		topic: topic,
		ch:    make(chan []byte, subscriberBuffer),
	}

	ps.mu.Lock()
	if ps.topics[topic] == nil {
		ps.topics[topic] = make(map[*inMemorySubscription]struct{})
	}
	ps.topics[topic][sub] = struct{}{}
	ps.mu.Unlock()

	return sub
}

func (ps *inMemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, subs := range ps.topics {
		for sub := range subs {
			close(sub.ch)
		}
	}
	ps.topics = make(map[string]map[*inMemorySubscription]struct{})
	return nil
}

type inMemorySubscription struct {
	ps     *inMemoryPubSub
	topic  string
	ch     chan []byte
	closed bool
	mu     sync.Mutex
}

func (s *inMemorySubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.ps.mu.Lock()
	delete(s.ps.topics[s.topic], s)
	s.ps.mu.Unlock()

	close(s.ch)
	return nil
}

func (s *inMemorySubscription) Channel() <-chan []byte {
	return s.ch
}
