// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package router implements the per-room router registry. One router
// exists per (node, room); the registry hands out the local one if present,
// otherwise acquires a worker and creates one, mirroring the assignment in
// the shared store with a 24h TTL.
package router

import "github.com/tinylib/msgp/msgp"

// Entry is the mirrored snapshot of a single room's router assignment,
// stored at mirror.RouterKey(roomID).
type Entry struct {
	RoomID string
	RouterID string
	ServerInstanceID string
	CreatedAtUnixMs int64
}

var _ msgp.Marshaler = (*Entry)(nil)
var _ msgp.Unmarshaler = (*Entry)(nil)

// MarshalMsg encodes Entry as a 4-element msgpack array, in field order.
func (z *Entry) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 4)
	o = msgp.AppendString(o, z.RoomID)
	o = msgp.AppendString(o, z.RouterID)
	o = msgp.AppendString(o, z.ServerInstanceID)
	o = msgp.AppendInt64(o, z.CreatedAtUnixMs)
	return o, nil
}

// UnmarshalMsg decodes Entry from the array form written by MarshalMsg.
func (z *Entry) UnmarshalMsg(bts []byte) ([]byte, error) {
	var sz uint32
	var err error
	sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	if sz != 4 {
		return nil, errUnexpectedArraySize
	}
	if z.RoomID, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}
	if z.RouterID, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}
	if z.ServerInstanceID, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}
	if z.CreatedAtUnixMs, bts, err = msgp.ReadInt64Bytes(bts); err != nil {
		return nil, err
	}
	return bts, nil
}
