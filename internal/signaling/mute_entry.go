// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package signaling

import (
	"errors"

	"github.com/tinylib/msgp/msgp"
)

var errUnexpectedMuteEntrySize = errors.New("signaling: unexpected msgpack array size for MuteEntry")

// MuteEntry is the mirrored snapshot of a single participant's mute state,
// stored at mirror.RoomMuteKey(roomCode, userID) with a 1h TTL, refreshed on
// every audio-mute/video-mute event.
type MuteEntry struct {
	UserID string
	AudioMuted bool
	VideoMuted bool
	HostForcedAudio bool
	HostForcedVideo bool
	UpdatedAtUnixMs int64
}

var _ msgp.Marshaler = (*MuteEntry)(nil)
var _ msgp.Unmarshaler = (*MuteEntry)(nil)

// MarshalMsg encodes MuteEntry as a 6-element msgpack array, in field order.
func (z *MuteEntry) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 6)
	o = msgp.AppendString(o, z.UserID)
	o = msgp.AppendBool(o, z.AudioMuted)
	o = msgp.AppendBool(o, z.VideoMuted)
	o = msgp.AppendBool(o, z.HostForcedAudio)
	o = msgp.AppendBool(o, z.HostForcedVideo)
	o = msgp.AppendInt64(o, z.UpdatedAtUnixMs)
	return o, nil
}

// UnmarshalMsg decodes MuteEntry from the array form written by MarshalMsg.
func (z *MuteEntry) UnmarshalMsg(bts []byte) ([]byte, error) {
	var sz uint32
	var err error
	sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	if sz != 6 {
		return nil, errUnexpectedMuteEntrySize
	}
	if z.UserID, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}
	if z.AudioMuted, bts, err = msgp.ReadBoolBytes(bts); err != nil {
		return nil, err
	}
	if z.VideoMuted, bts, err = msgp.ReadBoolBytes(bts); err != nil {
		return nil, err
	}
	if z.HostForcedAudio, bts, err = msgp.ReadBoolBytes(bts); err != nil {
		return nil, err
	}
	if z.HostForcedVideo, bts, err = msgp.ReadBoolBytes(bts); err != nil {
		return nil, err
	}
	if z.UpdatedAtUnixMs, bts, err = msgp.ReadInt64Bytes(bts); err != nil {
		return nil, err
	}
	return bts, nil
}
