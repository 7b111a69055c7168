// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package retry implements the exponential-backoff-with-full-jitter policy
// of on top of cenkalti/backoff, restricted to the error classes
// that are actually worth retrying (apierrors.Transient). Distinct from
// internal/testutils/retry, which is a test-flake helper, not a production
// retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cynayd/connect-core/internal/apierrors"
)

const (
	base = 100 * time.Millisecond
	maxAttempts = 3
	maxElapsed = 30 * time.Second
	jitterMax = 100 * time.Millisecond
)

// fullJitterBackOff implements delay = base*2^attempt + random(0, jitterMax),
// which is not one of backoff's built-in policies (those jitter by scaling
// the computed interval, not by adding a bounded random term on top of it).
type fullJitterBackOff struct {
	attempt int
}

func (b *fullJitterBackOff) NextBackOff() time.Duration {
	delay := base * time.Duration(1<<uint(b.attempt)) //nolint:gosec
	b.attempt++
	return delay + time.Duration(rand.Int63n(int64(jitterMax))) //nolint:gosec
}

func (b *fullJitterBackOff) Reset() {
	b.attempt = 0
}

// Do runs fn up to maxAttempts times, retrying only when fn returns an
// apierrors.Transient error. Any other error (including one of a different
// apierrors.Kind) is returned immediately without retrying.
func Do(ctx context.Context, fn func(context.Context) error) error {
	policy := backoff.WithMaxRetries(&fullJitterBackOff{}, maxAttempts-1)
	bounded := backoff.WithContext(backoff.WithMaxElapsedTime(policy, maxElapsed), ctx)

	var lastErr error
	err := backoff.Retry(func() error {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if apierrors.Is(lastErr, apierrors.Transient) {
			return lastErr
		}
		// Non-retryable: stop the backoff loop immediately.
		return backoff.Permanent(lastErr)
	}, bounded)

	if err == nil {
		return nil
	}
	// backoff.Retry unwraps a PermanentError before returning it, so a
	// non-transient failure is recognized by its kind.
	if lastErr != nil && !apierrors.Is(lastErr, apierrors.Transient) {
		return lastErr
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	if lastErr != nil {
		return fmt.Errorf("exhausted retries: %w", lastErr)
	}
	return err
}
