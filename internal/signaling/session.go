// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package signaling implements the per-socket session state machine and
// the websocket event vocabulary clients use to join a room, publish and
// subscribe to media, and exchange chat and mute controls.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/gorilla/websocket"
)

// State is a signaling session's position in the state machine.
type State int

const (
	StateNew State = iota
	StateAuthenticated
	StateJoined
	StateOperational
	StateLeaving
	StateClosed
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateOperational:
		return "operational"
	case StateLeaving:
		return "leaving"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when an event arrives in a state that
// doesn't permit it.
var ErrInvalidTransition = errors.New("signaling: invalid state transition")

// transitions enumerates the state machine's edges. JOINED and OPERATIONAL
// form a cycle (producing/consuming calls can interleave).
var transitions = map[State]map[State]bool{ //nolint:gochecknoglobals
	StateNew: {StateAuthenticated: true, StateFaulted: true, StateClosed: true},
	StateAuthenticated: {StateJoined: true, StateFaulted: true, StateClosed: true},
	StateJoined: {StateOperational: true, StateLeaving: true, StateFaulted: true, StateClosed: true},
	StateOperational: {StateJoined: true, StateLeaving: true, StateFaulted: true, StateClosed: true},
	StateLeaving: {StateClosed: true, StateFaulted: true},
	StateFaulted: {StateClosed: true},
	StateClosed: {},
}

// Session is one client's signaling connection, with a single mailbox
// goroutine draining its inbound events to preserve per-socket ordering
//.
type Session struct {
	ID string
	UserID string
	RoomID string
	RoomCode string
	DisplayName string
	Email string
	PictureURL string

	conn *websocket.Conn
	writeMu sync.Mutex

	mu sync.Mutex
	state State

	mailbox chan func(context.Context)
	cancel context.CancelFunc
}

// NewSession wraps conn in a NEW-state session with a buffered mailbox.
func NewSession(id string, conn *websocket.Conn) *Session {
	return &Session{
		ID: id,
		conn: conn,
		state: StateNew,
		mailbox: make(chan func(context.Context), 64),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves the session to next, returning ErrInvalidTransition if
// the edge isn't permitted from the current state.
func (s *Session) transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !transitions[s.state][next] {
		return apierrors.Wrap(apierrors.Validation, "invalid signaling state transition", ErrInvalidTransition)
	}
	s.state = next
	return nil
}

// Run starts the mailbox loop; it returns when ctx is cancelled or the
// mailbox is closed.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-s.mailbox:
			if !ok {
				return
			}
			fn(ctx)
		}
	}
}

// Enqueue schedules fn to run on this session's mailbox goroutine, the only
// place session state is mutated, so handlers never race each other for a
// single socket.
func (s *Session) Enqueue(fn func(context.Context)) {
	select {
		case s.mailbox <- fn:
		default:
		// Mailbox full: the socket is misbehaving or the process is
		// overloaded; drop to avoid unbounded memory growth, the client
		// will see a stalled response and reconnect.
	}
}

// writeJSON marshals v and writes it as a single websocket text frame.
// gorilla/websocket permits only one writer at a time per connection, and
// both the mailbox's ack replies and Manager's server-initiated pushes
// write to the same conn, so every write goes through this one lock.
func (s *Session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode signaling message: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data) //nolint:wrapcheck
}

// Send pushes a server-initiated event to the client outside of the
// request/response ack cycle, e.g. user-joined or new-producer.
func (s *Session) Send(env Envelope) error {
	return s.writeJSON(env)
}

// Close stops the mailbox loop and the underlying connection.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	close(s.mailbox)
	return s.conn.Close() //nolint:wrapcheck
}
