// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package mirror

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Encode marshals v (a router/transport/producer/consumer/room snapshot)
// into msgpack using a pooled scratch buffer, so the hot path of mirroring
// registry state on every create/close doesn't allocate a fresh byte slice
// per call. The returned slice is v's own copy and safe to keep past the
// call; the scratch buffer is returned to the pool before Encode returns.
func Encode(v msgp.Marshaler) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	out, err := v.MarshalMsg((*buf)[:0])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mirror payload: %w", err)
	}

	encoded := make([]byte, len(out))
	copy(encoded, out)
	return encoded, nil
}

// Decode unmarshals a mirrored msgpack payload into v.
func Decode(data []byte, v msgp.Unmarshaler) error {
	leftover, err := v.UnmarshalMsg(data)
	if err != nil {
		return fmt.Errorf("failed to unmarshal mirror payload: %w", err)
	}
	if len(leftover) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", errTrailingData, len(leftover))
	}
	return nil
}
