// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package apierrors classifies every error the control plane surfaces to a
// signaling client or a background task into one of a fixed set of kinds,
// so call sites can branch on behavior (retry, close the channel, downgrade
// silently) with a type switch instead of string matching on error text.
package apierrors

import (
	"errors"
	"fmt"
)

// Kind is the behavioral class of an Error, independent of its message.
type Kind int

const (
	// Validation marks malformed client input; the session stays in its
	// current state.
	Validation Kind = iota
	// Unauthorized marks a missing or invalid credential; the channel is
	// closed after the ack.
	Unauthorized
	// NotFound marks a reference to a room/producer/transport/consumer that
	// does not exist.
	NotFound
	// Conflict marks a request whose outcome already holds (duplicate join,
	// already-admin); an idempotent response is preferred over an error.
	Conflict
	// Transient marks a shared-store/database fault expected to succeed on
	// retry.
	Transient
	// CircuitOpen marks a call rejected fast by an open circuit breaker,
	// distinguishable from Transient so non-critical paths can downgrade
	// silently instead of retrying.
	CircuitOpen
	// FatalLocal marks a failure local to this node (a worker died) that
	// drops affected clients but does not threaten the process.
	FatalLocal
	// FatalGlobal marks a failure that leaves the process unable to serve
	// anything (no database at startup, no workers); the supervisor exits
	// non-zero so the environment restarts it.
	FatalGlobal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Transient:
		return "transient"
	case CircuitOpen:
		return "circuit_open"
	case FatalLocal:
		return "fatal_local"
	case FatalGlobal:
		return "fatal_global"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a behavioral Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind wrapping cause. Returns nil if
// cause is nil, so call sites can write `return apierrors.Wrap(Transient,
// "...", err)` unconditionally after an `if err != nil` that already
// guards the call.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Transient for errors that
// were never classified (conservative: assume retry might help).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transient
}
