// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package mirror

import (
	"errors"
	"sync"
)

var errTrailingData = errors.New("mirror: unexpected trailing bytes after decode")

// scratchBufSize is large enough for a MarshalMsg'd producer/consumer/
// transport/router snapshot; Encode grows the buffer on demand if a payload
// doesn't fit.
const scratchBufSize = 256

var scratchPool = sync.Pool{ //nolint:gochecknoglobals
	New: func() any {
		b := make([]byte, scratchBufSize)
		return &b
	},
}

func getBuffer() *[]byte {
	return scratchPool.Get().(*[]byte) //nolint:errcheck,forcetypeassert
}

func putBuffer(b *[]byte) {
	scratchPool.Put(b)
}
