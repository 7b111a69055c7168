// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package apierrors_test

import (
	"errors"
	"testing"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/stretchr/testify/assert"
)

func TestNewHasNoCause(t *testing.T) {
	t.Parallel()
	err := apierrors.New(apierrors.Validation, "bad room code")
	assert.Equal(t, "validation: bad room code", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	t.Parallel()
	err := apierrors.Wrap(apierrors.Transient, "should not happen", nil)
	assert.Nil(t, err)
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("dial tcp: connection refused")
	err := apierrors.Wrap(apierrors.Transient, "failed to reach shared store", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsMatchesKind(t *testing.T) {
	t.Parallel()
	err := apierrors.New(apierrors.NotFound, "room not found")
	assert.True(t, apierrors.Is(err, apierrors.NotFound))
	assert.False(t, apierrors.Is(err, apierrors.Conflict))
	assert.False(t, apierrors.Is(errors.New("plain error"), apierrors.NotFound))
}

func TestKindOfDefaultsToTransient(t *testing.T) {
	t.Parallel()
	assert.Equal(t, apierrors.Transient, apierrors.KindOf(errors.New("unclassified")))
	assert.Equal(t, apierrors.CircuitOpen, apierrors.KindOf(apierrors.New(apierrors.CircuitOpen, "open")))
}

func TestKindStringCoversEveryValue(t *testing.T) {
	t.Parallel()
	cases := map[apierrors.Kind]string{
		apierrors.Validation:   "validation",
		apierrors.Unauthorized: "unauthorized",
		apierrors.NotFound:     "not_found",
		apierrors.Conflict:     "conflict",
		apierrors.Transient:    "transient",
		apierrors.CircuitOpen:  "circuit_open",
		apierrors.FatalLocal:   "fatal_local",
		apierrors.FatalGlobal:  "fatal_global",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
	assert.Equal(t, "unknown", apierrors.Kind(999).String())
}

func TestErrorsAsUnwrapsThroughWrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("root cause")
	wrapped := apierrors.Wrap(apierrors.FatalLocal, "worker died", cause)

	var target *apierrors.Error
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, apierrors.FatalLocal, target.Kind)
	assert.True(t, errors.Is(wrapped, cause))
}
