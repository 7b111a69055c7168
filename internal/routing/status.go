// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package routing

import "github.com/tinylib/msgp/msgp"

// Status is the mirrored heartbeat written to
// connect:routing:server:<id>:status every 30s.
type Status struct {
	ID string
	LastHeartbeatMs int64
	SignalingPort int32
	APIPort int32
}

var _ msgp.Marshaler = (*Status)(nil)
var _ msgp.Unmarshaler = (*Status)(nil)

// MarshalMsg encodes Status as a 4-element msgpack array, in field order.
func (z *Status) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 4)
	o = msgp.AppendString(o, z.ID)
	o = msgp.AppendInt64(o, z.LastHeartbeatMs)
	o = msgp.AppendInt32(o, z.SignalingPort)
	o = msgp.AppendInt32(o, z.APIPort)
	return o, nil
}

// UnmarshalMsg decodes Status from the array form written by MarshalMsg.
func (z *Status) UnmarshalMsg(bts []byte) ([]byte, error) {
	var sz uint32
	var err error
	sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	if sz != 4 {
		return nil, errUnexpectedStatusSize
	}
	if z.ID, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}
	if z.LastHeartbeatMs, bts, err = msgp.ReadInt64Bytes(bts); err != nil {
		return nil, err
	}
	if z.SignalingPort, bts, err = msgp.ReadInt32Bytes(bts); err != nil {
		return nil, err
	}
	if z.APIPort, bts, err = msgp.ReadInt32Bytes(bts); err != nil {
		return nil, err
	}
	return bts, nil
}
