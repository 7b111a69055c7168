// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package breaker wraps gobreaker so every shared-store and database call
// goes through the same CLOSED/OPEN/HALF_OPEN state machine, surfacing a
// classified apierrors.CircuitOpen error while a breaker is tripped instead
// of letting callers rediscover the downstream outage on their own.
package breaker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/sony/gobreaker/v2"
)

// Config tunes a single breaker instance. Defaults match the shared-store
// breaker (failure threshold 5, reset timeout 30s, success threshold 2, and
// a 5s per-call timeout) but are also reused for the database breaker with
// a 10s timeout.
type Config struct {
	Name             string
	FailureThreshold uint32
	ResetTimeout     time.Duration
	SuccessThreshold uint32
	CallTimeout      time.Duration
}

// DefaultSharedStoreConfig returns the shared-store breaker tuning.
func DefaultSharedStoreConfig() Config {
	return Config{
		Name:             "shared-store",
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
		CallTimeout:      5 * time.Second,
	}
}

// DefaultDatabaseConfig returns the database breaker tuning.
func DefaultDatabaseConfig() Config {
	return Config{
		Name:             "database",
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
		CallTimeout:      10 * time.Second,
	}
}

// Breaker executes calls under a gobreaker circuit, translating a tripped
// breaker into apierrors.CircuitOpen rather than gobreaker's own sentinel so
// callers only need to know about one error taxonomy.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
	timeout time.Duration
}

// New builds a Breaker for a single logical downstream (one per shared-store
// client, one per database client).
func New[T any](cfg Config) *Breaker[T] {
	settings := gobreaker.Settings{
		Name: cfg.Name,
		MaxRequests: cfg.SuccessThreshold,
		Interval: 0,
		Timeout: cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerError(err)
		},
	}
	return &Breaker[T]{
		cb: gobreaker.NewCircuitBreaker[T](settings),
		timeout: cfg.CallTimeout,
	}
}

// Execute runs fn under the breaker with a per-call timeout. A breaker trip
// is reported as apierrors.CircuitOpen. An error of kind Validation,
// NotFound or Conflict returned by fn is passed through unchanged; a timeout
// or any other error (including other classified kinds) is reported as
// apierrors.Transient.
func (b *Breaker[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	result, err := b.cb.Execute(func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return fn(callCtx)
	})
	if err == nil {
		return result, nil
	}

	var zero T
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests { //nolint:errorlint
		return zero, apierrors.Wrap(apierrors.CircuitOpen, "circuit breaker open", err)
	}
	if isCallerError(err) {
		return zero, err
	}
	return zero, apierrors.Wrap(apierrors.Transient, "call failed", err)
}

// isCallerError reports whether err is a classified caller-side outcome
// (Validation, NotFound, Conflict) rather than a downstream fault; such
// errors do not count toward tripping the breaker.
func isCallerError(err error) bool {
	return apierrors.Is(err, apierrors.Validation) || apierrors.Is(err, apierrors.NotFound) || apierrors.Is(err, apierrors.Conflict)
}

// State reports the breaker's current state for health/metrics surfacing.
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}
