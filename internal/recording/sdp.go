// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package recording

import (
	"fmt"
	"strings"
)

// plainTrack is one plain-RTP listener ffmpeg will read from.
type plainTrack struct {
	Kind      string // "audio" or "video"
	Port      int
	ClockRate uint32
	PayloadID int
	Role      string // "primary" or "pip"
}

// generateSDP writes a minimal ffmpeg-consumable SDP describing every plain
// track, one media section each, bound to announcedIP.
func generateSDP(announcedIP string, tracks []plainTrack) string {
	var b strings.Builder
	b.WriteString("v=0\r\n")
	fmt.Fprintf(&b, "o=- 0 0 IN IP4 %s\r\n", announcedIP)
	b.WriteString("s=connect-core composite recording\r\n")
	fmt.Fprintf(&b, "c=IN IP4 %s\r\n", announcedIP)
	b.WriteString("t=0 0\r\n")

	for _, t := range tracks {
		fmt.Fprintf(&b, "m=%s %d RTP/AVP %d\r\n", t.Kind, t.Port, t.PayloadID)
		fmt.Fprintf(&b, "a=rtpmap:%d %s/%d\r\n", t.PayloadID, codecName(t.Kind), t.ClockRate)
		b.WriteString("a=recvonly\r\n")
	}

	return b.String()
}

func codecName(kind string) string {
	if kind == "audio" {
		return "opus"
	}
	return "VP8"
}
